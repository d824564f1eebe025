// Package service holds the structured description of the AWS services a
// user asked for: one Spec per service kind, collected into a ParsedRequest.
package service

import "strings"

// Kind identifies a supported service kind.
type Kind string

const (
	KindEC2      Kind = "ec2"
	KindRDS      Kind = "rds"
	KindS3       Kind = "s3"
	KindLambda   Kind = "lambda"
	KindDynamoDB Kind = "dynamodb"
)

// Kinds lists every supported kind in processing order.
var Kinds = []Kind{KindEC2, KindRDS, KindS3, KindLambda, KindDynamoDB}

var displayNames = map[Kind]string{
	KindEC2:      "Amazon EC2",
	KindRDS:      "Amazon RDS",
	KindS3:       "Amazon S3",
	KindLambda:   "AWS Lambda",
	KindDynamoDB: "Amazon DynamoDB",
}

// ParseKind maps a loosely written kind name onto a Kind.
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := displayNames[k]; ok {
		return k, true
	}
	return "", false
}

// DisplayName returns the calculator's product name for the kind.
func (k Kind) DisplayName() string {
	if name, ok := displayNames[k]; ok {
		return name
	}
	return string(k)
}

// Engine is an RDS database engine.
type Engine string

const (
	EngineMySQL      Engine = "mysql"
	EnginePostgreSQL Engine = "postgresql"
	EngineAurora     Engine = "aurora"
)

// ParseEngine normalises an engine token. "postgres" is accepted as an alias.
func ParseEngine(s string) (Engine, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mysql":
		return EngineMySQL, true
	case "postgresql", "postgres":
		return EnginePostgreSQL, true
	case "aurora":
		return EngineAurora, true
	}
	return "", false
}

// Defaults applied when a field is absent or unparseable.
const (
	DefaultEC2Count        = 1
	DefaultEC2InstanceType = "t3.micro"

	DefaultRDSCount        = 1
	DefaultRDSStorageGB    = 100
	DefaultRDSEngine       = EngineMySQL
	DefaultRDSInstanceType = "db.t3.medium"

	DefaultS3StorageGB    = 100
	DefaultS3StorageClass = "Standard"
	DefaultS3Requests     = 10000

	DefaultLambdaMemoryMB   = 128
	DefaultLambdaRequests   = 1000000
	DefaultLambdaDurationMs = 100

	DefaultDynamoDBStorageGB     = 10
	DefaultDynamoDBReadCapacity  = 5
	DefaultDynamoDBWriteCapacity = 5
)

// Spec is one service to configure. The concrete types below are the only
// implementations.
type Spec interface {
	Kind() Kind
	isSpec()
}

// EC2Spec describes a group of identical EC2 instances.
type EC2Spec struct {
	Count        int    `json:"count"`
	InstanceType string `json:"instanceType"`
}

// RDSSpec describes a group of identical RDS instances.
type RDSSpec struct {
	Engine       Engine `json:"engine"`
	StorageGB    int    `json:"storage"`
	InstanceType string `json:"instanceType"`
	Count        int    `json:"count"`
}

// S3Spec describes S3 storage.
type S3Spec struct {
	StorageGB    int    `json:"storage"`
	StorageClass string `json:"storageClass"`
	Requests     int    `json:"requests"`
}

// LambdaSpec describes a Lambda workload.
type LambdaSpec struct {
	MemoryMB   int `json:"memory"`
	Requests   int `json:"requests"`
	DurationMs int `json:"duration"`
}

// DynamoDBSpec describes a provisioned-capacity DynamoDB table.
type DynamoDBSpec struct {
	StorageGB     int `json:"storage"`
	ReadCapacity  int `json:"readCapacity"`
	WriteCapacity int `json:"writeCapacity"`
}

func (EC2Spec) Kind() Kind      { return KindEC2 }
func (RDSSpec) Kind() Kind      { return KindRDS }
func (S3Spec) Kind() Kind       { return KindS3 }
func (LambdaSpec) Kind() Kind   { return KindLambda }
func (DynamoDBSpec) Kind() Kind { return KindDynamoDB }

func (EC2Spec) isSpec()      {}
func (RDSSpec) isSpec()      {}
func (S3Spec) isSpec()       {}
func (LambdaSpec) isSpec()   {}
func (DynamoDBSpec) isSpec() {}

// NewEC2 returns an EC2Spec with defaults substituted for zero values.
func NewEC2(count int, instanceType string) EC2Spec {
	return EC2Spec{
		Count:        positiveOr(count, DefaultEC2Count),
		InstanceType: stringOr(instanceType, DefaultEC2InstanceType),
	}
}

// NewRDS returns an RDSSpec with defaults substituted for zero values.
func NewRDS(count, storageGB int, engine Engine, instanceType string) RDSSpec {
	if engine == "" {
		engine = DefaultRDSEngine
	}
	return RDSSpec{
		Engine:       engine,
		StorageGB:    positiveOr(storageGB, DefaultRDSStorageGB),
		InstanceType: stringOr(instanceType, DefaultRDSInstanceType),
		Count:        positiveOr(count, DefaultRDSCount),
	}
}

// NewS3 returns an S3Spec with defaults substituted for zero values.
func NewS3(storageGB int, storageClass string, requests int) S3Spec {
	return S3Spec{
		StorageGB:    positiveOr(storageGB, DefaultS3StorageGB),
		StorageClass: stringOr(storageClass, DefaultS3StorageClass),
		Requests:     positiveOr(requests, DefaultS3Requests),
	}
}

// NewLambda returns a LambdaSpec with defaults substituted for zero values.
func NewLambda(memoryMB, requests, durationMs int) LambdaSpec {
	return LambdaSpec{
		MemoryMB:   positiveOr(memoryMB, DefaultLambdaMemoryMB),
		Requests:   positiveOr(requests, DefaultLambdaRequests),
		DurationMs: positiveOr(durationMs, DefaultLambdaDurationMs),
	}
}

// NewDynamoDB returns a DynamoDBSpec with defaults substituted for zero values.
func NewDynamoDB(storageGB, readCapacity, writeCapacity int) DynamoDBSpec {
	return DynamoDBSpec{
		StorageGB:     positiveOr(storageGB, DefaultDynamoDBStorageGB),
		ReadCapacity:  positiveOr(readCapacity, DefaultDynamoDBReadCapacity),
		WriteCapacity: positiveOr(writeCapacity, DefaultDynamoDBWriteCapacity),
	}
}

func positiveOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func stringOr(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
