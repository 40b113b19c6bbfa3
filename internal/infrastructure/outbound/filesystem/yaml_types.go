package filesystem

// yamlEndpoint is the YAML deserialization target for endpoint definitions.
type yamlEndpoint struct {
	ID             string            `yaml:"id,omitempty"`
	URL            string            `yaml:"url"`
	ResponseProps  any               `yaml:"responseProps,omitempty"`
	Pagination     *bool             `yaml:"pagination,omitempty"`
	PerPage        int               `yaml:"perPage,omitempty"`
	Total          int               `yaml:"total,omitempty"`
	Singular       bool              `yaml:"singular,omitempty"`
	Seed           *uint64           `yaml:"seed,omitempty"`
	Status         int               `yaml:"status,omitempty"`
	Delay          int               `yaml:"delay,omitempty"`
	StaticResponse any               `yaml:"staticResponse,omitempty"`
	Engine         string            `yaml:"engine,omitempty"`
	ErrorRate      float64           `yaml:"errorRate,omitempty"`
	ResponseFormat string            `yaml:"responseFormat,omitempty"`
	Conditions     []yamlCondition   `yaml:"conditions,omitempty"`
	Cache          bool              `yaml:"cache,omitempty"`
	Methods        []string          `yaml:"methods,omitempty"`
	LogRequests    bool              `yaml:"logRequests,omitempty"`
	QueryParams    map[string]string `yaml:"queryParams,omitempty"`
	Throttle       *yamlThrottle     `yaml:"throttle,omitempty"`
}

type yamlCondition struct {
	Headers  map[string]string `yaml:"headers,omitempty"`
	Query    map[string]string `yaml:"query,omitempty"`
	Body     *yamlBody         `yaml:"body,omitempty"`
	Status   int               `yaml:"status,omitempty"`
	Response any               `yaml:"response,omitempty"`
}

type yamlBody struct {
	ContentType string              `yaml:"content_type,omitempty"`
	Conditions  []yamlBodyCondition `yaml:"conditions,omitempty"`
}

type yamlBodyCondition struct {
	Extractor string `yaml:"extractor"`
	Matcher   string `yaml:"matcher"`
}

type yamlThrottle struct {
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}
