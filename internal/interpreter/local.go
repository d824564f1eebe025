package interpreter

import (
	"regexp"
	"strconv"
	"strings"

	"calc-assistant/internal/service"
)

// Shared pattern pieces. assign covers "為/为/是/is/:/=" between a field
// label and its value; gap separates clauses of one mention.
const (
	assign  = `\s*(?:為|为|是|is|:|：|=)?\s*`
	gap     = `[\s,，、]*`
	counter = `\s*(?:台|個|个|的|x|×)?\s*`
	ec2Type = `[tmcr]\d[a-z0-9]*\.[a-z0-9]+`
	engines = `mysql|postgresql|postgres|aurora`
)

var (
	ec2Pattern = regexp.MustCompile(`(?i)` +
		`(?:(\d+)` + counter + `)?` +
		`(?:(` + ec2Type + `)\s*(?:的\s*)?)?` +
		`ec2\s*(?:實例|实例|伺服器|服务器|主機|主机|instances?|servers?)?` +
		`(?:` + gap + `(?:of\s+)?(?:類型|类型|instance type|type)` + assign + `(` + ec2Type + `))?`)

	rdsPattern = regexp.MustCompile(`(?i)` +
		`(?:(\d+)\s*(gb|tb)\s*(?:的)?\s*)?` +
		`(?:(\d+)` + counter + `)?` +
		`(?:(` + engines + `)\s*)?` +
		`\brds\s*(?:(` + engines + `)\s*)?` +
		`(?:資料庫實例|数据库实例|資料庫|数据库|databases?|instances?)?` +
		`(?:\s*(db\.[a-z0-9]+\.[a-z0-9]+))?` +
		`(?:` + gap + `(?:容量|大小|儲存|存储|storage)` + assign + `(\d+)\s*(gb|tb))?` +
		`(?:` + gap + `(?:類型|类型|type|engine|引擎)` + assign + `(` + engines + `))?`)

	s3Pattern = regexp.MustCompile(`(?i)` +
		`(?:(\d+)\s*(gb|tb)\s*(?:的)?\s*)?` +
		`\bs3\s*(?:儲存桶|存储桶|儲存|存储|存儲|storage|buckets?)?` +
		`(?:` + gap + `(?:容量|大小|儲存|存储|storage)?` + assign + `(\d+)\s*(gb|tb))?`)

	lambdaPattern = regexp.MustCompile(`(?i)` +
		`(?:(\d+)\s*mb\s*(?:的)?\s*)?` +
		`lambda\s*(?:函數|函数|functions?)?` +
		`(?:` + gap + `(?:記憶體|记忆体|內存|内存|memory)` + assign + `(\d+)\s*mb)?` +
		`(?:` + gap + `(?:請求|请求|requests?|invocations?)\s*(?:次數|次数|數|数)?` + assign + `(\d+))?` +
		`(?:` + gap + `(?:執行時間|执行时间|時間|时间|duration)` + assign + `(\d+)\s*(?:ms|毫秒)?)?`)

	dynamoPattern = regexp.MustCompile(`(?i)` +
		`(?:(\d+)\s*gb\s*(?:的)?\s*)?` +
		`dynamo\s*db\s*(?:資料表|数据表|表格|表|tables?)?` +
		`(?:` + gap + `(?:容量|大小|儲存|存储|storage)` + assign + `(\d+)\s*gb)?` +
		`(?:` + gap + `(?:讀取|读取|read)\s*(?:容量|capacity)?\s*(?:單位|单位|units?)?` + assign + `(\d+))?` +
		`(?:` + gap + `(?:寫入|写入|write)\s*(?:容量|capacity)?\s*(?:單位|单位|units?)?` + assign + `(\d+))?`)
)

type kindPattern struct {
	kind  service.Kind
	re    *regexp.Regexp
	build func(m []string) service.Spec
}

// kindPatterns is evaluated in service.Kinds order. Patterns are independent:
// one query may match several of them.
var kindPatterns = []kindPattern{
	{service.KindEC2, ec2Pattern, func(m []string) service.Spec {
		return service.NewEC2(atoi(m[1]), strings.ToLower(firstOf(m[2], m[3])))
	}},
	{service.KindRDS, rdsPattern, func(m []string) service.Spec {
		engine, _ := service.ParseEngine(firstOf(m[4], m[5], m[9]))
		storage := gigabytes(m[1], m[2])
		if storage == 0 {
			storage = gigabytes(m[7], m[8])
		}
		return service.NewRDS(atoi(m[3]), storage, engine, strings.ToLower(m[6]))
	}},
	{service.KindS3, s3Pattern, func(m []string) service.Spec {
		storage := gigabytes(m[1], m[2])
		if storage == 0 {
			storage = gigabytes(m[3], m[4])
		}
		return service.NewS3(storage, "", 0)
	}},
	{service.KindLambda, lambdaPattern, func(m []string) service.Spec {
		return service.NewLambda(atoi(firstOf(m[2], m[1])), atoi(m[3]), atoi(m[4]))
	}},
	{service.KindDynamoDB, dynamoPattern, func(m []string) service.Spec {
		return service.NewDynamoDB(atoi(firstOf(m[2], m[1])), atoi(m[3]), atoi(m[4]))
	}},
}

// ParseLocal runs the deterministic tier. ok is false when no kind matched.
func ParseLocal(text string) (req service.ParsedRequest, ok bool) {
	var specs []service.Spec
	for _, p := range kindPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		specs = append(specs, p.build(m))
	}
	if len(specs) == 0 {
		return service.ParsedRequest{}, false
	}
	return service.ParsedRequest{
		Services:   specs,
		Region:     InferRegion(text),
		Provenance: service.ProvenanceLocal,
	}, true
}

// atoi returns 0 for anything that is not a plain non-negative integer; the
// spec constructors turn 0 into the field default.
func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// gigabytes converts a captured capacity to GB. TB values are scaled by 1024.
func gigabytes(num, unit string) int {
	n := atoi(num)
	if strings.EqualFold(unit, "tb") {
		return n * 1024
	}
	return n
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
