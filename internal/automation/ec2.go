package automation

import (
	"strconv"

	"calc-assistant/internal/service"
	"calc-assistant/internal/ui"
)

// The EC2 search also lists Windows Server variants; those cards are skipped.
var ec2Procedure = procedure{
	searchTerm: "EC2",
	card:       cardFor("Amazon EC2", "Windows Server"),
	fields: func(s service.Spec, region service.Region) []field {
		spec := s.(service.EC2Spec)
		return []field{
			regionField(region),
			{
				name:       "instance type",
				strategies: ui.Strategies{selectBy(spec.InstanceType)},
				value:      spec.InstanceType,
			},
			{
				name: "quantity",
				strategies: ui.Strategies{
					numberBy("quantity", "數量"),
					numberWithValue("1"),
				},
				value: strconv.Itoa(spec.Count),
			},
		}
	},
}
