package app

import (
	"github.com/yukivision/yukivision/nn"
	"github.com/yukivision/yukivision/worker"
	"github.com/yukivision/yukivision/yuki"

	"fmt"
	"log"
	"sync"
)

// TrainPool schedules training jobs; set by main.go.
var TrainPool *worker.Pool

type TrainRequest struct {
	TrainDataset int
	ValDataset int
	Epochs int
	BatchSize int
}

// TrainJobOp tracks per-epoch progress of an in-process training run.
// Formatted epoch lines are kept in a bounded tail for the job view.
type TrainJobOp struct {
	mu sync.Mutex
	state yuki.ModelJobState
	tail yuki.TailJobOp
	stopped bool
}

func (op *TrainJobOp) Encode() string {
	op.mu.Lock()
	defer op.mu.Unlock()
	return string(yuki.JsonMarshal(op.state))
}

func (op *TrainJobOp) Stop() error {
	op.mu.Lock()
	op.stopped = true
	op.mu.Unlock()
	return nil
}

func (op *TrainJobOp) Stopped() bool {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.stopped
}

func (op *TrainJobOp) AddEpoch(stats nn.EpochStats) {
	op.mu.Lock()
	op.state.TrainLoss = append(op.state.TrainLoss, stats.Loss)
	op.state.TrainAcc = append(op.state.TrainAcc, stats.Acc)
	op.state.ValLoss = append(op.state.ValLoss, stats.ValLoss)
	op.state.ValAcc = append(op.state.ValAcc, stats.ValAcc)
	line := fmt.Sprintf(
		"epoch %d: loss=%.4f acc=%.4f val_loss=%.4f val_acc=%.4f",
		stats.Epoch, stats.Loss, stats.Acc, stats.ValLoss, stats.ValAcc,
	)
	op.state.Lines = op.tail.Update([]string{line})
	op.mu.Unlock()
}

// loadSamples decodes every item in the dataset and resizes to the model
// input size, returning one HWC tensor plus label per item.
func loadSamples(ds *DBDataset, size int) ([]*nn.Tensor, []int, error) {
	items := ds.ListItems()
	var xs []*nn.Tensor
	var ys []int
	for _, item := range items {
		im, err := item.LoadImage()
		if err != nil {
			return nil, nil, fmt.Errorf("error loading item %s: %v", item.Key, err)
		}
		xs = append(xs, yuki.ImageTensor(im.Resize(size, size)))
		ys = append(ys, item.Label)
	}
	return xs, ys, nil
}

// Train enqueues a training job for the model and returns it.
func (model *DBModel) Train(request TrainRequest) (*DBJob, error) {
	trainDS := GetDataset(request.TrainDataset)
	if trainDS == nil {
		return nil, fmt.Errorf("no such dataset %d", request.TrainDataset)
	}
	var valDS *DBDataset
	if request.ValDataset != 0 {
		valDS = GetDataset(request.ValDataset)
		if valDS == nil {
			return nil, fmt.Errorf("no such dataset %d", request.ValDataset)
		}
	}
	if len(trainDS.Classes) != model.numClasses() {
		return nil, fmt.Errorf(
			"dataset %s has %d classes but model emits %d",
			trainDS.Name, len(trainDS.Classes), model.numClasses(),
		)
	}
	if valDS != nil && len(valDS.Classes) != model.numClasses() {
		return nil, fmt.Errorf(
			"dataset %s has %d classes but model emits %d",
			valDS.Name, len(valDS.Classes), model.numClasses(),
		)
	}

	job := NewJob(
		fmt.Sprintf("Train %s on %s", model.Name, trainDS.Name),
		"train", "train", string(yuki.JsonMarshal(request)),
	)
	op := &TrainJobOp{}
	job.AttachOp(op)

	TrainPool.Submit(job.Name, func() error {
		err := model.runTraining(job, op, trainDS, valDS, request)
		job.DetachOp()
		if err == nil {
			job.SetDone("")
		} else {
			job.SetDone(err.Error())
		}
		return err
	})

	return job, nil
}

func (model *DBModel) numClasses() int {
	layers := model.Config.Layers
	if len(layers) == 0 {
		return 0
	}
	return layers[len(layers)-1].Units
}

func (model *DBModel) runTraining(job *DBJob, op *TrainJobOp, trainDS, valDS *DBDataset, request TrainRequest) error {
	m, err := yuki.BuildModel(model.Config)
	if err != nil {
		return err
	}
	log.Printf("[train %s] built model:\n%s", model.Name, m.Summary())

	xs, ys, err := loadSamples(trainDS, model.Config.InputSize)
	if err != nil {
		return err
	}
	var valXs []*nn.Tensor
	var valYs []int
	if valDS != nil {
		valXs, valYs, err = loadSamples(valDS, model.Config.InputSize)
		if err != nil {
			return err
		}
	}
	log.Printf("[train %s] %d train / %d val samples", model.Name, len(xs), len(valXs))

	_, err = m.Fit(xs, ys, valXs, valYs, nn.FitOptions{
		Epochs: request.Epochs,
		BatchSize: request.BatchSize,
		Shuffle: true,
		OnEpoch: func(stats nn.EpochStats) {
			log.Printf(
				"[train %s] epoch %d: loss=%.4f acc=%.4f val_loss=%.4f val_acc=%.4f",
				model.Name, stats.Epoch, stats.Loss, stats.Acc, stats.ValLoss, stats.ValAcc,
			)
			op.AddEpoch(stats)
			job.UpdateState(op.Encode())
		},
		Stop: op.Stopped,
	})
	if err != nil {
		return err
	}
	if op.Stopped() {
		return fmt.Errorf("training stopped by user")
	}

	model.MkdirWeights()
	if err := m.SaveWeights(model.WeightsFname()); err != nil {
		return err
	}
	model.SetTrained(trainDS.Classes)
	return nil
}
