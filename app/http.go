package app

import (
	"github.com/yukivision/yukivision/yuki"

	"net/http"

	socketio "github.com/googollee/go-socket.io"
	"github.com/gorilla/mux"
)

var SetupFuncs []func(*socketio.Server)
var Router = mux.NewRouter()

// Quickstart describes how to organize a dataset on disk and kick off
// training; it is printed at startup and served here for convenience.
const Quickstart = `To train a model, organize a dataset folder like:
  dataset/trees/     (jpg/png images of trees)
  dataset/plastic/   (images of plastic waste)
  dataset/other/     (anything else)
Then import it and start training:
  curl -X POST localhost:8080/datasets -d 'name=yuki'
  curl -X POST localhost:8080/datasets/1/import-local -d 'path=./dataset'
  curl -X POST localhost:8080/models -d 'name=yuki-vision'
  curl -X POST localhost:8080/models/1/train -d '{"TrainDataset": 1, "Epochs": 10}'
`

func init() {
	Router.HandleFunc("/quickstart", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(Quickstart))
	}).Methods("GET")

	Router.HandleFunc("/classes", func(w http.ResponseWriter, r *http.Request) {
		yuki.JsonResponse(w, yuki.DefaultClasses)
	}).Methods("GET")
}
