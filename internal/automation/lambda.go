package automation

import (
	"strconv"

	"calc-assistant/internal/service"
	"calc-assistant/internal/ui"
)

var lambdaProcedure = procedure{
	searchTerm: "Lambda",
	card:       cardFor("Lambda"),
	fields: func(s service.Spec, _ service.Region) []field {
		spec := s.(service.LambdaSpec)
		return []field{
			{
				name:       "memory",
				strategies: ui.Strategies{numberBy("memory", "記憶體")},
				value:      strconv.Itoa(spec.MemoryMB),
			},
			{
				name:       "requests",
				strategies: ui.Strategies{numberBy("requests", "請求")},
				value:      strconv.Itoa(spec.Requests),
			},
			{
				name:       "duration",
				strategies: ui.Strategies{numberBy("duration", "時間")},
				value:      strconv.Itoa(spec.DurationMs),
			},
		}
	},
}
