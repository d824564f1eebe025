package interpreter

import (
	"strings"

	"calc-assistant/internal/service"
)

type regionCue struct {
	region   service.Region
	keywords []string
}

// regionTable is scanned in order and the first region with a matching
// keyword wins, so a text naming both Virginia and Singapore is us-east-1.
var regionTable = []regionCue{
	{service.RegionVirginia, []string{"美國", "美国", "美东", "美東", "us-east", "弗吉尼亞", "弗吉尼亚", "virginia"}},
	{service.RegionIreland, []string{"歐洲", "欧洲", "europe", "eu-", "愛爾蘭", "爱尔兰", "ireland"}},
	{service.RegionSingapore, []string{"新加坡", "singapore", "ap-southeast"}},
	{service.RegionTokyo, []string{"東京", "东京", "日本", "tokyo", "japan", "ap-northeast"}},
}

// InferRegion returns the first region in table order with a keyword in text.
func InferRegion(text string) service.Region {
	lower := strings.ToLower(text)
	for _, cue := range regionTable {
		for _, kw := range cue.keywords {
			if strings.Contains(lower, kw) {
				return cue.region
			}
		}
	}
	return service.DefaultRegion
}
