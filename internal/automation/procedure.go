package automation

import (
	"calc-assistant/internal/service"
	"calc-assistant/internal/ui"
)

// field is one value to enter on a configuration form.
type field struct {
	name       string
	strategies ui.Strategies
	value      string
}

// procedure describes how one service kind is added to the estimate.
type procedure struct {
	// searchTerm is typed into the service search box.
	searchTerm string
	// card selects the result card; its Kind and Fragments are fixed here.
	card ui.Descriptor
	// fields lists the form fields in the order they must be applied.
	fields func(spec service.Spec, region service.Region) []field
}

var procedures = map[service.Kind]procedure{
	service.KindEC2:      ec2Procedure,
	service.KindRDS:      rdsProcedure,
	service.KindS3:       s3Procedure,
	service.KindLambda:   lambdaProcedure,
	service.KindDynamoDB: dynamoDBProcedure,
}

var (
	searchEntry = ui.Strategies{
		{Kind: ui.KindInput, Fragments: []string{"搜尋服務", "Search services"}, Sources: []ui.Source{ui.SourcePlaceholder}, Exact: true},
	}
	configureFragments = []string{"設定", "Configure"}
	commitButton       = ui.Strategies{
		{Kind: ui.KindButton, Fragments: []string{"新增到估算", "Add to estimate"}},
	}
	formPresent = ui.OfKind(ui.KindForm)
)

func cardFor(fragment string, exclude ...string) ui.Descriptor {
	return ui.Descriptor{Kind: ui.KindCard, Fragments: []string{fragment}, Exclude: exclude}
}

func selectBy(fragments ...string) ui.Descriptor {
	return ui.Descriptor{Kind: ui.KindSelect, Fragments: fragments}
}

func numberBy(fragments ...string) ui.Descriptor {
	return ui.Descriptor{Kind: ui.KindNumber, Fragments: fragments, Sources: []ui.Source{ui.SourcePlaceholder}}
}

func numberWithID(fragments ...string) ui.Descriptor {
	return ui.Descriptor{Kind: ui.KindNumber, Fragments: fragments, Sources: []ui.Source{ui.SourceID}}
}

func numberWithValue(value string) ui.Descriptor {
	return ui.Descriptor{Kind: ui.KindNumber, Fragments: []string{value}, Sources: []ui.Source{ui.SourceValue}, Exact: true}
}

func regionField(region service.Region) field {
	return field{
		name:       "region",
		strategies: ui.Strategies{selectBy(string(region), string(service.RegionTokyo), "東京")},
		value:      string(region),
	}
}
