package yuki

import (
	"fmt"
	"os"
)

// DefaultClasses is the label set of the stock tree/plastic/other classifier.
// Item.Label indexes into the dataset's class list.
var DefaultClasses = []string{"tree", "plastic", "other"}

type Dataset struct {
	ID int
	Name string
	Classes []string
}

type Item struct {
	Dataset Dataset
	Key string
	Ext string
	Format string
	Label int
	Width int
	Height int
}

func (item Item) Fname() string {
	return fmt.Sprintf("items/%d/%s.%s", item.Dataset.ID, item.Key, item.Ext)
}

func (item Item) Mkdir() {
	os.MkdirAll(fmt.Sprintf("items/%d", item.Dataset.ID), 0755)
}

func (item Item) LoadImage() (Image, error) {
	file, err := os.Open(item.Fname())
	if err != nil {
		return Image{}, err
	}
	defer file.Close()
	return DecodeImage(item.Format, file)
}

func (item Item) UpdateImage(im Image) error {
	item.Mkdir()
	var encoded []byte
	var err error
	if item.Format == "png" {
		encoded, err = im.AsPNG()
	} else {
		encoded, err = im.AsJPG()
	}
	if err != nil {
		return err
	}
	file, err := os.Create(item.Fname())
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = file.Write(encoded)
	return err
}

func (item Item) Remove() {
	os.Remove(item.Fname())
}

func (ds Dataset) Remove() {
	os.RemoveAll(fmt.Sprintf("items/%d", ds.ID))
}

func (ds Dataset) ClassName(label int) string {
	if label < 0 || label >= len(ds.Classes) {
		return fmt.Sprintf("class%d", label)
	}
	return ds.Classes[label]
}
