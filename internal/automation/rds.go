package automation

import (
	"strconv"

	"calc-assistant/internal/service"
	"calc-assistant/internal/ui"
)

var rdsProcedure = procedure{
	searchTerm: "RDS",
	card:       cardFor("RDS"),
	fields: func(s service.Spec, region service.Region) []field {
		spec := s.(service.RDSSpec)
		return []field{
			{
				name:       "engine",
				strategies: ui.Strategies{selectBy("MySQL", "Aurora", "PostgreSQL")},
				value:      string(spec.Engine),
			},
			regionField(region),
			{
				name:       "instance type",
				strategies: ui.Strategies{selectBy("db.", "資料庫")},
				value:      spec.InstanceType,
			},
			{
				name: "storage",
				strategies: ui.Strategies{
					numberBy("storage", "儲存"),
					numberWithID("storage"),
				},
				value: strconv.Itoa(spec.StorageGB),
			},
			{
				name:       "quantity",
				strategies: ui.Strategies{numberBy("quantity", "數量")},
				value:      strconv.Itoa(spec.Count),
			},
		}
	},
}
