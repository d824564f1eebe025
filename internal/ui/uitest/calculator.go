package uitest

import (
	"strings"
	"sync"
	"time"

	"calc-assistant/internal/ui"
)

// Product is one card in the fake calculator's catalogue.
type Product struct {
	ID     string
	Name   string
	Fields []ui.Element
}

// DefaultCatalogue mirrors the cards and form fields the calculator shows
// for the supported services, plus a Windows Server EC2 variant listed first.
func DefaultCatalogue() []Product {
	regionSelect := func(h ui.Handle) ui.Element {
		return ui.Element{Handle: h, Kind: ui.KindSelect, Tag: "select", Text: "Asia Pacific (東京) ap-northeast-1 US East (N. Virginia) us-east-1",
			Options: []string{"ap-northeast-1", "us-east-1", "eu-west-1", "ap-southeast-1"}}
	}
	number := func(h ui.Handle, placeholder, value string) ui.Element {
		return ui.Element{Handle: h, Kind: ui.KindNumber, Tag: "input", Type: "number", Placeholder: placeholder, Value: value}
	}
	return []Product{
		{ID: "ec2-windows", Name: "Amazon EC2 Dedicated Hosts for Windows Server", Fields: []ui.Element{
			number("ec2-windows-hosts", "Number of hosts", ""),
		}},
		{ID: "ec2", Name: "Amazon EC2", Fields: []ui.Element{
			regionSelect("ec2-region"),
			{Handle: "ec2-type", Kind: ui.KindSelect, Tag: "select", Text: "t3.micro t3.medium m5.large c5.xlarge",
				Options: []string{"t3.micro", "t3.medium", "m5.large", "c5.xlarge"}},
			number("ec2-quantity", "Enter quantity", "1"),
		}},
		{ID: "rds", Name: "Amazon RDS for MySQL", Fields: []ui.Element{
			{Handle: "rds-engine", Kind: ui.KindSelect, Tag: "select", Text: "MySQL PostgreSQL Aurora",
				Options: []string{"mysql", "postgresql", "aurora"}},
			regionSelect("rds-region"),
			{Handle: "rds-instance", Kind: ui.KindSelect, Tag: "select", Text: "db.t3.micro db.t3.medium db.r5.large",
				Options: []string{"db.t3.micro", "db.t3.medium", "db.r5.large"}},
			number("rds-storage", "Enter storage amount", ""),
			number("rds-quantity", "Enter quantity", ""),
		}},
		{ID: "s3", Name: "Amazon S3", Fields: []ui.Element{
			{Handle: "s3-class", Kind: ui.KindSelect, Tag: "select", Text: "S3 Standard S3 Glacier",
				Options: []string{"Standard", "Glacier"}},
			number("s3-storage", "Enter storage amount", ""),
			number("s3-requests", "PUT requests", ""),
		}},
		{ID: "lambda", Name: "AWS Lambda", Fields: []ui.Element{
			number("lambda-memory", "Amount of memory allocated", ""),
			number("lambda-requests", "Number of requests", ""),
			number("lambda-duration", "Average duration", ""),
		}},
		{ID: "dynamodb", Name: "Amazon DynamoDB", Fields: []ui.Element{
			number("dynamodb-read", "Provisioned read capacity units", ""),
			number("dynamodb-write", "Provisioned write capacity units", ""),
			number("dynamodb-storage", "Data storage size", ""),
		}},
	}
}

// Calculator drives a Page the way the pricing calculator behaves: searching
// lists matching cards, Configure opens the product's form after FormDelay,
// and Add to estimate records the product and returns to the search screen.
type Calculator struct {
	*Page

	catalogue []Product
	formDelay time.Duration
	stuck     map[string]bool
	noCommit  bool

	mu       sync.Mutex
	estimate []string
}

// CalculatorOption adjusts a Calculator.
type CalculatorOption func(*Calculator)

// WithFormDelay delays the appearance of every configuration form.
func WithFormDelay(d time.Duration) CalculatorOption {
	return func(c *Calculator) { c.formDelay = d }
}

// WithStuckForm makes the product's Configure button do nothing, so its
// form never appears and the search screen stays up.
func WithStuckForm(productID string) CalculatorOption {
	return func(c *Calculator) { c.stuck[productID] = true }
}

// WithoutAddButton leaves the Add to estimate button off every form.
func WithoutAddButton() CalculatorOption {
	return func(c *Calculator) { c.noCommit = true }
}

// WithCatalogue replaces the default catalogue.
func WithCatalogue(products []Product) CalculatorOption {
	return func(c *Calculator) { c.catalogue = products }
}

const (
	SearchHandle ui.Handle = "search"
	FormHandle   ui.Handle = "config-form"
	AddHandle    ui.Handle = "add-to-estimate"
)

// NewCalculator returns a calculator on its service selection screen.
func NewCalculator(opts ...CalculatorOption) *Calculator {
	c := &Calculator{
		Page:      NewPage(),
		catalogue: DefaultCatalogue(),
		stuck:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.SetLocation("https://calculator.aws/#/addService", "Add service - AWS Pricing Calculator")
	c.home()
	return c
}

// Estimate lists the products added so far.
func (c *Calculator) Estimate() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.estimate...)
}

func searchInput() ui.Element {
	return ui.Element{Handle: SearchHandle, Kind: ui.KindInput, Tag: "input", Type: "search", Placeholder: "Search services"}
}

func (c *Calculator) home() {
	c.Replace(searchInput())
	c.OnFill(SearchHandle, func(p *Page, value string) { c.search(value) })
}

func (c *Calculator) search(term string) {
	elements := []ui.Element{searchInput()}
	for _, prod := range c.catalogue {
		if term == "" || !strings.Contains(strings.ToLower(prod.Name), strings.ToLower(term)) {
			continue
		}
		card := ui.Handle("card-" + prod.ID)
		button := ui.Handle("configure-" + prod.ID)
		elements = append(elements,
			ui.Element{Handle: card, Kind: ui.KindCard, Tag: "div", Text: prod.Name + " Configure"},
			ui.Element{Handle: button, Kind: ui.KindButton, Tag: "button", Text: "Configure", Container: card},
		)
		prod := prod
		c.OnClick(button, func(p *Page) { c.configure(prod) })
	}
	c.Replace(elements...)
}

func (c *Calculator) configure(prod Product) {
	if c.stuck[prod.ID] {
		return
	}
	c.SetLocation("https://calculator.aws/#/createCalculator/"+prod.ID, "Configure "+prod.Name+" - AWS Pricing Calculator")
	c.Replace(ui.Element{Handle: "heading", Kind: ui.KindHeading, Tag: "h1", Text: "Configure " + prod.Name})
	show := func(p *Page) {
		elements := []ui.Element{{Handle: FormHandle, Kind: ui.KindForm, Tag: "form"}}
		elements = append(elements, prod.Fields...)
		if !c.noCommit {
			elements = append(elements, ui.Element{Handle: AddHandle, Kind: ui.KindButton, Tag: "button", Text: "Add to estimate"})
		}
		p.Add(elements...)
		p.OnClick(AddHandle, func(p *Page) {
			c.mu.Lock()
			c.estimate = append(c.estimate, prod.Name)
			c.mu.Unlock()
			c.SetLocation("https://calculator.aws/#/addService", "Add service - AWS Pricing Calculator")
			c.home()
		})
	}
	if c.formDelay > 0 {
		c.After(c.formDelay, show)
		return
	}
	show(c.Page)
}
