package app

import (
	"github.com/yukivision/yukivision/yuki"

	"os"
)

type DBModel struct {
	yuki.Model
	Classes []string
}

const ModelQuery = "SELECT id, name, config, classes, trained FROM models"

func modelListHelper(rows *Rows) []*DBModel {
	models := []*DBModel{}
	for rows.Next() {
		var model DBModel
		var configRaw, classesRaw string
		rows.Scan(&model.ID, &model.Name, &configRaw, &classesRaw, &model.Trained)
		yuki.JsonUnmarshal([]byte(configRaw), &model.Config)
		model.Classes = DecodeClasses(classesRaw)
		models = append(models, &model)
	}
	return models
}

func ListModels() []*DBModel {
	rows := db.Query(ModelQuery)
	return modelListHelper(rows)
}

func GetModel(id int) *DBModel {
	rows := db.Query(ModelQuery+" WHERE id = ?", id)
	models := modelListHelper(rows)
	if len(models) == 1 {
		return models[0]
	} else {
		return nil
	}
}

func NewModel(name string) *DBModel {
	cfg := yuki.DefaultConfig()
	res := db.Exec(
		"INSERT INTO models (name, config, classes, trained) VALUES (?, ?, ?, 0)",
		name, string(yuki.JsonMarshal(cfg)), EncodeClasses(yuki.DefaultClasses),
	)
	return GetModel(res.LastInsertId())
}

type ModelUpdate struct {
	Name *string
	Config *yuki.ModelConfig
}

func (model *DBModel) Update(req ModelUpdate) {
	if req.Name != nil {
		db.Exec("UPDATE models SET name = ? WHERE id = ?", *req.Name, model.ID)
	}
	if req.Config != nil {
		// editing the architecture invalidates any trained weights
		db.Exec("UPDATE models SET config = ?, trained = 0 WHERE id = ?", string(yuki.JsonMarshal(*req.Config)), model.ID)
	}
}

func (model *DBModel) SetTrained(classes []string) {
	db.Exec("UPDATE models SET trained = 1, classes = ? WHERE id = ?", EncodeClasses(classes), model.ID)
}

func (model *DBModel) Delete() {
	db.Exec("DELETE FROM models WHERE id = ?", model.ID)
	os.Remove(model.WeightsFname())
}
