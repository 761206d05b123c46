package app

import (
	"github.com/yukivision/yukivision/nn"
	"github.com/yukivision/yukivision/yuki"

	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
)

type InferResponse struct {
	Class string
	ClassIndex int
	Probs []float64
}

// loadTrained builds the model and restores its trained weights.
func (model *DBModel) loadTrained() (*nn.Sequential, error) {
	if !model.Trained {
		return nil, fmt.Errorf("model %s has not been trained", model.Name)
	}
	if !yuki.FileExists(model.WeightsFname()) {
		return nil, fmt.Errorf("model %s has no saved weights", model.Name)
	}
	m, err := yuki.BuildModel(model.Config)
	if err != nil {
		return nil, err
	}
	if err := m.LoadWeights(model.WeightsFname()); err != nil {
		return nil, err
	}
	return m, nil
}

// Infer classifies one image with the trained model.
func (model *DBModel) Infer(m *nn.Sequential, im yuki.Image) InferResponse {
	x := yuki.ImageTensor(im.Resize(model.Config.InputSize, model.Config.InputSize))
	probs := m.Predict(x)
	idx := probs.Argmax()
	class := fmt.Sprintf("class%d", idx)
	if idx < len(model.Classes) {
		class = model.Classes[idx]
	}
	return InferResponse{
		Class: class,
		ClassIndex: idx,
		Probs: probs.Data,
	}
}

func init() {
	Router.HandleFunc("/models", func(w http.ResponseWriter, r *http.Request) {
		yuki.JsonResponse(w, ListModels())
	}).Methods("GET")

	Router.HandleFunc("/models", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		name := r.PostForm.Get("name")
		model := NewModel(name)
		yuki.JsonResponse(w, model)
	}).Methods("POST")

	Router.HandleFunc("/models/{model_id}", func(w http.ResponseWriter, r *http.Request) {
		modelID := yuki.ParseInt(mux.Vars(r)["model_id"])
		model := GetModel(modelID)
		if model == nil {
			http.Error(w, "no such model", 404)
			return
		}
		yuki.JsonResponse(w, model)
	}).Methods("GET")

	Router.HandleFunc("/models/{model_id}", func(w http.ResponseWriter, r *http.Request) {
		modelID := yuki.ParseInt(mux.Vars(r)["model_id"])
		model := GetModel(modelID)
		if model == nil {
			http.Error(w, "no such model", 404)
			return
		}

		var request ModelUpdate
		if err := yuki.ParseJsonRequest(w, r, &request); err != nil {
			return
		}

		model.Update(request)
	}).Methods("POST")

	Router.HandleFunc("/models/{model_id}", func(w http.ResponseWriter, r *http.Request) {
		modelID := yuki.ParseInt(mux.Vars(r)["model_id"])
		model := GetModel(modelID)
		if model == nil {
			http.Error(w, "no such model", 404)
			return
		}
		model.Delete()
	}).Methods("DELETE")

	Router.HandleFunc("/models/{model_id}/summary", func(w http.ResponseWriter, r *http.Request) {
		modelID := yuki.ParseInt(mux.Vars(r)["model_id"])
		model := GetModel(modelID)
		if model == nil {
			http.Error(w, "no such model", 404)
			return
		}
		m, err := yuki.BuildModel(model.Config)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(m.Summary()))
	}).Methods("GET")

	Router.HandleFunc("/models/{model_id}/train", func(w http.ResponseWriter, r *http.Request) {
		modelID := yuki.ParseInt(mux.Vars(r)["model_id"])
		model := GetModel(modelID)
		if model == nil {
			http.Error(w, "no such model", 404)
			return
		}

		var request TrainRequest
		if err := yuki.ParseJsonRequest(w, r, &request); err != nil {
			return
		}

		job, err := model.Train(request)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		yuki.JsonResponse(w, job)
	}).Methods("POST")

	Router.HandleFunc("/models/{model_id}/infer", func(w http.ResponseWriter, r *http.Request) {
		modelID := yuki.ParseInt(mux.Vars(r)["model_id"])
		model := GetModel(modelID)
		if model == nil {
			http.Error(w, "no such model", 404)
			return
		}
		m, err := model.loadTrained()
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}

		render := r.FormValue("render") == "true"

		HandleUpload(w, r, func(fname string) error {
			format := formatFromExt(yuki.Ext(fname))
			if format == "" {
				// extension didn't tell us, try common formats
				format = "jpeg"
			}
			file, err := os.Open(fname)
			if err != nil {
				return err
			}
			defer file.Close()
			im, err := yuki.DecodeImage(format, file)
			if err != nil {
				return err
			}

			response := model.Infer(m, im)
			log.Printf("[infer %s] %s -> %s (%.3f)", model.Name, fname, response.Class, response.Probs[response.ClassIndex])

			if render {
				annotated := im.Copy()
				annotated.DrawText(yuki.RichText{
					Text: fmt.Sprintf("%s %.2f", response.Class, response.Probs[response.ClassIndex]),
				})
				encoded, err := annotated.AsJPG()
				if err != nil {
					return err
				}
				w.Header().Set("Content-Type", "image/jpeg")
				w.Write(encoded)
				return nil
			}

			yuki.JsonResponse(w, response)
			return nil
		})
	}).Methods("POST")
}
