package app

import (
	"github.com/yukivision/yukivision/yuki"

	"net/http"
	"os"

	"github.com/gorilla/mux"
)

func (item *DBItem) Handle(format string, w http.ResponseWriter, r *http.Request) {
	if format == "" || format == item.Format {
		http.ServeFile(w, r, item.Fname())
		return
	}

	file, err := os.Open(item.Fname())
	if err != nil {
		panic(err)
	}
	defer file.Close()
	im, err := yuki.DecodeImage(item.Format, file)
	if err != nil {
		panic(err)
	}

	var encoded []byte
	if format == "jpeg" {
		w.Header().Set("Content-Type", "image/jpeg")
		encoded, err = im.AsJPG()
	} else if format == "png" {
		w.Header().Set("Content-Type", "image/png")
		encoded, err = im.AsPNG()
	} else {
		http.Error(w, "unknown format", 400)
		return
	}
	if err != nil {
		panic(err)
	}
	w.Write(encoded)
}

func init() {
	Router.HandleFunc("/datasets", func(w http.ResponseWriter, r *http.Request) {
		yuki.JsonResponse(w, ListDatasets())
	}).Methods("GET")

	Router.HandleFunc("/datasets", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		name := r.PostForm.Get("name")
		classes := DecodeClasses(r.PostForm.Get("classes"))
		ds := NewDataset(name, classes)
		yuki.JsonResponse(w, ds)
	}).Methods("POST")

	Router.HandleFunc("/datasets/{ds_id}", func(w http.ResponseWriter, r *http.Request) {
		dsID := yuki.ParseInt(mux.Vars(r)["ds_id"])
		dataset := GetDataset(dsID)
		if dataset == nil {
			http.Error(w, "no such dataset", 404)
			return
		}
		yuki.JsonResponse(w, dataset)
	}).Methods("GET")

	Router.HandleFunc("/datasets/{ds_id}", func(w http.ResponseWriter, r *http.Request) {
		dsID := yuki.ParseInt(mux.Vars(r)["ds_id"])
		dataset := GetDataset(dsID)
		if dataset == nil {
			http.Error(w, "no such dataset", 404)
			return
		}
		dataset.Delete()
	}).Methods("DELETE")

	Router.HandleFunc("/datasets/{ds_id}/items", func(w http.ResponseWriter, r *http.Request) {
		dsID := yuki.ParseInt(mux.Vars(r)["ds_id"])
		dataset := GetDataset(dsID)
		if dataset == nil {
			http.Error(w, "no such dataset", 404)
			return
		}
		yuki.JsonResponse(w, dataset.ListItems())
	}).Methods("GET")

	Router.HandleFunc("/datasets/{ds_id}/items/{item_key}", func(w http.ResponseWriter, r *http.Request) {
		dsID := yuki.ParseInt(mux.Vars(r)["ds_id"])
		itemKey := mux.Vars(r)["item_key"]

		dataset := GetDataset(dsID)
		if dataset == nil {
			http.Error(w, "no such dataset", 404)
			return
		}
		item := dataset.GetItem(itemKey)
		if item == nil {
			http.Error(w, "no such item", 404)
			return
		}
		item.Delete()
	}).Methods("DELETE")

	Router.HandleFunc("/datasets/{ds_id}/items/{item_key}/get", func(w http.ResponseWriter, r *http.Request) {
		dsID := yuki.ParseInt(mux.Vars(r)["ds_id"])
		itemKey := mux.Vars(r)["item_key"]
		r.ParseForm()
		format := r.Form.Get("format")

		dataset := GetDataset(dsID)
		if dataset == nil {
			http.Error(w, "no such dataset", 404)
			return
		}
		item := dataset.GetItem(itemKey)
		if item == nil {
			http.Error(w, "no matching item", 404)
			return
		}

		if format == "meta" {
			yuki.JsonResponse(w, item)
			return
		}

		item.Handle(format, w, r)
	})
}
