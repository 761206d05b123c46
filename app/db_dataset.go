package app

import (
	"github.com/yukivision/yukivision/yuki"

	"strings"
)

type DBDataset struct {
	yuki.Dataset
}

type DBItem struct {
	yuki.Item
	ID int
}

const DatasetQuery = "SELECT id, name, classes FROM datasets"

func datasetListHelper(rows *Rows) []*DBDataset {
	datasets := []*DBDataset{}
	for rows.Next() {
		var ds DBDataset
		var classesRaw string
		rows.Scan(&ds.ID, &ds.Name, &classesRaw)
		ds.Classes = DecodeClasses(classesRaw)
		datasets = append(datasets, &ds)
	}
	return datasets
}

func EncodeClasses(classes []string) string {
	return strings.Join(classes, ",")
}

func DecodeClasses(s string) []string {
	var classes []string
	for _, part := range strings.Split(s, ",") {
		if part == "" {
			continue
		}
		classes = append(classes, part)
	}
	return classes
}

func ListDatasets() []*DBDataset {
	rows := db.Query(DatasetQuery)
	return datasetListHelper(rows)
}

func GetDataset(id int) *DBDataset {
	rows := db.Query(DatasetQuery+" WHERE id = ?", id)
	datasets := datasetListHelper(rows)
	if len(datasets) == 1 {
		return datasets[0]
	} else {
		return nil
	}
}

func NewDataset(name string, classes []string) *DBDataset {
	if len(classes) == 0 {
		classes = yuki.DefaultClasses
	}
	res := db.Exec("INSERT INTO datasets (name, classes) VALUES (?, ?)", name, EncodeClasses(classes))
	return GetDataset(res.LastInsertId())
}

func (ds *DBDataset) Delete() {
	for _, item := range ds.ListItems() {
		item.Remove()
	}
	db.Exec("DELETE FROM items WHERE dataset_id = ?", ds.ID)
	db.Exec("DELETE FROM datasets WHERE id = ?", ds.ID)
	ds.Dataset.Remove()
}

const ItemQuery = "SELECT id, k, ext, format, label, width, height FROM items"

func (ds *DBDataset) itemListHelper(rows *Rows) []*DBItem {
	items := []*DBItem{}
	for rows.Next() {
		var item DBItem
		rows.Scan(&item.ID, &item.Key, &item.Ext, &item.Format, &item.Label, &item.Width, &item.Height)
		item.Dataset = ds.Dataset
		items = append(items, &item)
	}
	return items
}

func (ds *DBDataset) ListItems() []*DBItem {
	rows := db.Query(ItemQuery+" WHERE dataset_id = ?", ds.ID)
	return ds.itemListHelper(rows)
}

func (ds *DBDataset) GetItem(key string) *DBItem {
	rows := db.Query(ItemQuery+" WHERE dataset_id = ? AND k = ?", ds.ID, key)
	items := ds.itemListHelper(rows)
	if len(items) == 1 {
		return items[0]
	} else {
		return nil
	}
}

func (ds *DBDataset) AddItem(item yuki.Item) *DBItem {
	db.Exec(
		"INSERT INTO items (dataset_id, k, ext, format, label, width, height) VALUES (?, ?, ?, ?, ?, ?, ?)",
		ds.ID, item.Key, item.Ext, item.Format, item.Label, item.Width, item.Height,
	)
	return ds.GetItem(item.Key)
}

func (item *DBItem) Delete() {
	db.Exec("DELETE FROM items WHERE id = ?", item.ID)
	item.Remove()
}
