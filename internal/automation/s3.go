package automation

import (
	"strconv"

	"calc-assistant/internal/service"
	"calc-assistant/internal/ui"
)

var s3Procedure = procedure{
	searchTerm: "S3",
	card:       cardFor("S3"),
	fields: func(s service.Spec, _ service.Region) []field {
		spec := s.(service.S3Spec)
		return []field{
			{
				name:       "storage class",
				strategies: ui.Strategies{selectBy("Standard", "標準")},
				value:      spec.StorageClass,
			},
			{
				name:       "storage",
				strategies: ui.Strategies{numberBy("storage", "儲存")},
				value:      strconv.Itoa(spec.StorageGB),
			},
			{
				name:       "requests",
				strategies: ui.Strategies{numberBy("requests", "請求")},
				value:      strconv.Itoa(spec.Requests),
			},
		}
	},
}
