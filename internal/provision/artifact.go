package provision

import (
	"os"

	"featurepull/internal/descriptor"
)

// Kind selects which bucket an artifact lives in.
type Kind string

const (
	KindRegistry Kind = "registry"
	KindData     Kind = "data"
)

const (
	TrainTable   = "train.parquet"
	ViewLogTable = "view_log.parquet"
)

type Artifact struct {
	Kind Kind
	Name string
}

// Required is every object the feature store client needs locally, in
// fetch order.
var Required = []Artifact{
	{Kind: KindRegistry, Name: descriptor.RegistryFile},
	{Kind: KindRegistry, Name: descriptor.OnlineStoreFile},
	{Kind: KindData, Name: TrainTable},
	{Kind: KindData, Name: ViewLogTable},
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
