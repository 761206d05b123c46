package app

import (
	"github.com/yukivision/yukivision/yuki"

	"fmt"
	"io"
	"io/ioutil"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
)

func GetKeyFromFilename(fname string) string {
	for i := len(fname) - 1; i >= 0; i-- {
		if fname[i] == '.' {
			return fname[0:i]
		}
	}
	// no dot, return whole filename
	return fname
}

func formatFromExt(ext string) string {
	if ext == "jpg" || ext == "jpeg" {
		return "jpeg"
	} else if ext == "png" {
		return "png"
	}
	return ""
}

// classIndex resolves a folder name to a class label.
// Folder names may be the plural of the class, e.g. dataset/trees/ for "tree".
func (ds *DBDataset) classIndex(name string) int {
	name = strings.ToLower(name)
	for i, class := range ds.Classes {
		if name == class || name == class+"s" || name == class+"es" {
			return i
		}
	}
	return -1
}

func (ds *DBDataset) ImportFiles(fnames []string, label int) error {
	// initial pass to make sure the filenames don't conflict with existing keys
	items := ds.ListItems()
	existingKeys := make(map[string]bool)
	for _, item := range items {
		existingKeys[item.Key] = true
	}
	class := ds.ClassName(label)
	for _, fname := range fnames {
		key := class + "_" + GetKeyFromFilename(filepath.Base(fname))
		if existingKeys[key] {
			return fmt.Errorf("key %s already exists in dataset %s", key, ds.Name)
		}
	}

	for _, fname := range fnames {
		key := class + "_" + GetKeyFromFilename(filepath.Base(fname))
		ext := yuki.Ext(fname)
		format := formatFromExt(ext)
		if format == "" {
			log.Printf("[import] skipping %s: not an image", fname)
			continue
		}
		dims, err := yuki.GetImageDimsFromFile(fname)
		if err != nil {
			return fmt.Errorf("error probing %s: %v", fname, err)
		}
		item := ds.AddItem(yuki.Item{
			Key: key,
			Ext: ext,
			Format: format,
			Label: label,
			Width: dims[0],
			Height: dims[1],
		})
		item.Mkdir()
		if err := yuki.CopyFile(fname, item.Fname()); err != nil {
			return err
		}
	}

	return nil
}

// ImportClassDir imports a class-folder tree: each subdirectory whose name
// matches one of the dataset's classes contributes labeled images.
func (ds *DBDataset) ImportClassDir(path string) error {
	files, err := ioutil.ReadDir(path)
	if err != nil {
		return err
	}
	imported := 0
	for _, fi := range files {
		if !fi.IsDir() {
			continue
		}
		label := ds.classIndex(fi.Name())
		if label < 0 {
			log.Printf("[import] skipping folder %s: no matching class in %v", fi.Name(), ds.Classes)
			continue
		}
		classDir := filepath.Join(path, fi.Name())
		classFiles, err := ioutil.ReadDir(classDir)
		if err != nil {
			return err
		}
		var fnames []string
		for _, cfi := range classFiles {
			if cfi.IsDir() {
				continue
			}
			fnames = append(fnames, filepath.Join(classDir, cfi.Name()))
		}
		if err := ds.ImportFiles(fnames, label); err != nil {
			return err
		}
		imported += len(fnames)
	}
	if imported == 0 {
		return fmt.Errorf("no class folders found under %s (expected e.g. %s/)", path, strings.Join(ds.Classes, "/, "))
	}
	return nil
}

// handle parts of standard upload where we save to a temporary file with same
// extension as uploaded file
func HandleUpload(w http.ResponseWriter, r *http.Request, f func(fname string) error) {
	err := func() error {
		file, fh, err := r.FormFile("file")
		if err != nil {
			return fmt.Errorf("error processing upload: %v", err)
		}
		// write file to a temporary file on disk with same extension
		ext := filepath.Ext(fh.Filename)
		tmpfile, err := ioutil.TempFile("", fmt.Sprintf("*%s", ext))
		if err != nil {
			return fmt.Errorf("error processing upload: %v", err)
		}
		defer os.Remove(tmpfile.Name())
		if _, err := io.Copy(tmpfile, file); err != nil {
			return fmt.Errorf("error processing upload: %v", err)
		}
		if err := tmpfile.Close(); err != nil {
			return fmt.Errorf("error processing upload: %v", err)
		}
		return f(tmpfile.Name())
	}()
	if err != nil {
		log.Printf("[upload %s] error: %v", r.URL.Path, err)
		http.Error(w, err.Error(), 400)
	}
}

func init() {
	Router.HandleFunc("/datasets/{ds_id}/import-local", func(w http.ResponseWriter, r *http.Request) {
		dsID := yuki.ParseInt(mux.Vars(r)["ds_id"])
		dataset := GetDataset(dsID)
		if dataset == nil {
			http.Error(w, "no such dataset", 404)
			return
		}

		r.ParseForm()
		path := r.PostForm.Get("path")

		go func() {
			var err error
			if fi, statErr := os.Stat(path); statErr == nil && fi.IsDir() {
				log.Printf("[import-local] importing class folders from [%s]", path)
				err = dataset.ImportClassDir(path)
			} else {
				err = fmt.Errorf("no such directory: %s", path)
			}

			if err == nil {
				log.Printf("[import-local] ... import from %s succeeded", path)
			} else {
				log.Printf("[import-local] ... import from %s failed: %v", path, err)
			}
		}()
	}).Methods("POST")

	Router.HandleFunc("/datasets/{ds_id}/import-upload", func(w http.ResponseWriter, r *http.Request) {
		dsID := yuki.ParseInt(mux.Vars(r)["ds_id"])
		dataset := GetDataset(dsID)
		if dataset == nil {
			http.Error(w, "no such dataset", 404)
			return
		}

		label := dataset.classIndex(r.FormValue("class"))
		if label < 0 {
			http.Error(w, fmt.Sprintf("class must be one of %v", dataset.Classes), 400)
			return
		}

		log.Printf("[import-upload] handling import from upload request")
		HandleUpload(w, r, func(fname string) error {
			log.Printf("[import-upload] importing from upload request: %s", fname)
			return dataset.ImportFiles([]string{fname}, label)
		})
	})
}
