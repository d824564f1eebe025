package automation

import (
	"strconv"

	"calc-assistant/internal/service"
	"calc-assistant/internal/ui"
)

var dynamoDBProcedure = procedure{
	searchTerm: "DynamoDB",
	card:       cardFor("DynamoDB"),
	fields: func(s service.Spec, _ service.Region) []field {
		spec := s.(service.DynamoDBSpec)
		return []field{
			{
				name:       "read capacity",
				strategies: ui.Strategies{numberBy("read", "讀取")},
				value:      strconv.Itoa(spec.ReadCapacity),
			},
			{
				name:       "write capacity",
				strategies: ui.Strategies{numberBy("write", "寫入")},
				value:      strconv.Itoa(spec.WriteCapacity),
			},
			{
				name:       "storage",
				strategies: ui.Strategies{numberBy("storage", "儲存")},
				value:      strconv.Itoa(spec.StorageGB),
			},
		}
	},
}
