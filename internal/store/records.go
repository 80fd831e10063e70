package store

import "frequency/pkg/types"

// modelRow is the models table. Adapters are linked through model_adapters.
type modelRow struct {
	Name     string       `gorm:"primaryKey"`
	Type     string       `gorm:"not null"`
	Repo     string
	CUDA     bool         `gorm:"column:cuda"`
	Adapters []adapterRow `gorm:"many2many:model_adapters;joinForeignKey:ModelName;joinReferences:AdapterName"`
}

func (modelRow) TableName() string { return "models" }

// adapterRow is the adapters table.
type adapterRow struct {
	Name      string `gorm:"primaryKey"`
	ModelName string `gorm:"column:model;not null;index"`
	URI       string `gorm:"column:uri"`
	Repo      string
}

func (adapterRow) TableName() string { return "adapters" }

const linkTable = "model_adapters"

func toModel(r modelRow) types.Model {
	names := make([]string, 0, len(r.Adapters))
	for _, a := range r.Adapters {
		names = append(names, a.Name)
	}
	return types.Model{Name: r.Name, Type: r.Type, HFRepo: r.Repo, CUDA: r.CUDA, Adapters: names}
}

func fromModel(m types.Model) modelRow {
	return modelRow{Name: m.Name, Type: m.Type, Repo: m.HFRepo, CUDA: m.CUDA}
}

func toAdapter(r adapterRow) types.Adapter {
	return types.Adapter{Name: r.Name, Model: r.ModelName, HFRepo: r.Repo, URI: r.URI}
}

func fromAdapter(a types.Adapter) adapterRow {
	return adapterRow{Name: a.Name, ModelName: a.Model, URI: a.URI, Repo: a.HFRepo}
}
