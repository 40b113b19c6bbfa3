package gen

import (
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// entry is either an invocable generator (fn set) or a constant member.
type entry struct {
	fn       func(f *gofakeit.Faker) any
	constant any
}

func fn(f func(*gofakeit.Faker) any) entry { return entry{fn: f} }
func constant(v any) entry                 { return entry{constant: v} }

// registry maps dotted generator paths to their implementations. The table
// is built once at init and never mutated, so lookups need no locking.
var registry = map[string]entry{
	// person
	"person.firstName": fn(func(f *gofakeit.Faker) any { return f.FirstName() }),
	"person.lastName":  fn(func(f *gofakeit.Faker) any { return f.LastName() }),
	"person.fullName":  fn(func(f *gofakeit.Faker) any { return f.Name() }),
	"person.email":     fn(func(f *gofakeit.Faker) any { return f.Email() }),
	"person.phone":     fn(func(f *gofakeit.Faker) any { return f.Phone() }),
	"person.jobTitle":  fn(func(f *gofakeit.Faker) any { return f.JobTitle() }),
	"person.gender":    fn(func(f *gofakeit.Faker) any { return f.Gender() }),
	"person.username":  fn(func(f *gofakeit.Faker) any { return f.Username() }),

	// internet
	"internet.email":      fn(func(f *gofakeit.Faker) any { return f.Email() }),
	"internet.url":        fn(func(f *gofakeit.Faker) any { return f.URL() }),
	"internet.domainName": fn(func(f *gofakeit.Faker) any { return f.DomainName() }),
	"internet.ip":         fn(func(f *gofakeit.Faker) any { return f.IPv4Address() }),
	"internet.ipv6":       fn(func(f *gofakeit.Faker) any { return f.IPv6Address() }),
	"internet.userAgent":  fn(func(f *gofakeit.Faker) any { return f.UserAgent() }),
	"internet.httpMethod": fn(func(f *gofakeit.Faker) any { return f.HTTPMethod() }),
	"internet.protocols":  constant([]any{"http", "https"}),

	// address
	"address.street":    fn(func(f *gofakeit.Faker) any { return f.Street() }),
	"address.city":      fn(func(f *gofakeit.Faker) any { return f.City() }),
	"address.state":     fn(func(f *gofakeit.Faker) any { return f.State() }),
	"address.zip":       fn(func(f *gofakeit.Faker) any { return f.Zip() }),
	"address.country":   fn(func(f *gofakeit.Faker) any { return f.Country() }),
	"address.latitude":  fn(func(f *gofakeit.Faker) any { return f.Latitude() }),
	"address.longitude": fn(func(f *gofakeit.Faker) any { return f.Longitude() }),

	// company
	"company.name":     fn(func(f *gofakeit.Faker) any { return f.Company() }),
	"company.buzzword": fn(func(f *gofakeit.Faker) any { return f.BuzzWord() }),
	"company.bs":       fn(func(f *gofakeit.Faker) any { return f.BS() }),
	"company.jobTitle": fn(func(f *gofakeit.Faker) any { return f.JobTitle() }),

	// lorem
	"lorem.word":      fn(func(f *gofakeit.Faker) any { return f.Word() }),
	"lorem.sentence":  fn(func(f *gofakeit.Faker) any { return f.Sentence(8) }),
	"lorem.paragraph": fn(func(f *gofakeit.Faker) any { return f.Paragraph(1, 4, 10, " ") }),

	// number
	"number.int":   fn(func(f *gofakeit.Faker) any { return f.Number(0, 1000000) }),
	"number.float": fn(func(f *gofakeit.Faker) any { return f.Float64Range(0, 1000000) }),
	"number.digit": fn(func(f *gofakeit.Faker) any { return f.Digit() }),

	// date
	"date.recent": fn(func(f *gofakeit.Faker) any {
		now := time.Now()
		return f.DateRange(now.AddDate(0, 0, -7), now).Format(time.RFC3339)
	}),
	"date.past": fn(func(f *gofakeit.Faker) any {
		now := time.Now()
		return f.DateRange(now.AddDate(-1, 0, 0), now).Format(time.RFC3339)
	}),
	"date.future": fn(func(f *gofakeit.Faker) any {
		now := time.Now()
		return f.DateRange(now, now.AddDate(1, 0, 0)).Format(time.RFC3339)
	}),
	"date.weekday": fn(func(f *gofakeit.Faker) any { return f.WeekDay() }),
	"date.month":   fn(func(f *gofakeit.Faker) any { return f.MonthString() }),

	// finance
	"finance.creditCard":     fn(func(f *gofakeit.Faker) any { return f.CreditCardNumber(nil) }),
	"finance.currency":       fn(func(f *gofakeit.Faker) any { return f.CurrencyShort() }),
	"finance.price":          fn(func(f *gofakeit.Faker) any { return f.Price(0.01, 1000) }),
	"finance.bitcoinAddress": fn(func(f *gofakeit.Faker) any { return f.BitcoinAddress() }),

	// color
	"color.name": fn(func(f *gofakeit.Faker) any { return f.Color() }),
	"color.hex":  fn(func(f *gofakeit.Faker) any { return f.HexColor() }),

	// datatype
	"datatype.uuid":    fn(func(f *gofakeit.Faker) any { return f.UUID() }),
	"datatype.boolean": fn(func(f *gofakeit.Faker) any { return f.Bool() }),
}
