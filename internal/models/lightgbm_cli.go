package models

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"go.uber.org/zap"

	"studentscore/pkg/utils"
)

// LightGBMCLI drives the external `lightgbm` binary. The trained model text is
// kept in ModelText so the struct serialises with the other artifacts; each
// call works in its own temp directory.
type LightGBMCLI struct {
	ExecPath      string
	NumLeaves     int
	MaxDepth      int
	MinDataInLeaf int
	NumIterations int
	LearningRate  float64
	Device        string
	ModelText     string
}

func NewLightGBMCLI() *LightGBMCLI {
	return &LightGBMCLI{
		ExecPath:      "lightgbm",
		NumLeaves:     31,
		MaxDepth:      -1,
		MinDataInLeaf: 20,
		NumIterations: 200,
		LearningRate:  0.05,
		Device:        "cpu",
	}
}

func (l *LightGBMCLI) Name() string {
	if l.Device == "gpu" {
		return "LightGBM(GPU)"
	}
	return "LightGBM(CPU)"
}

func (l *LightGBMCLI) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return errors.New("lightgbm: empty or misaligned training set")
	}
	dir, err := os.MkdirTemp("", "lgbm-train-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	trainCSV := filepath.Join(dir, "train.csv")
	if err := writeCSVLabelFirst(trainCSV, X, y); err != nil {
		return err
	}
	modelPath := filepath.Join(dir, "model.txt")
	device := l.Device
	if device == "" {
		device = "cpu"
	}
	cfg := fmt.Sprintf("task=train\nboosting=gbdt\nobjective=regression\nmetric=rmse\n"+
		"data=%s\nheader=false\nlabel_column=0\n"+
		"num_leaves=%d\nmax_depth=%d\nmin_data_in_leaf=%d\n"+
		"num_iterations=%d\nlearning_rate=%f\n"+
		"device=%s\noutput_model=%s\n",
		trainCSV, l.NumLeaves, l.MaxDepth, l.MinDataInLeaf, l.NumIterations, l.LearningRate,
		device, modelPath,
	)
	if err := l.run(dir, "train.conf", cfg); err != nil {
		return err
	}
	text, err := os.ReadFile(modelPath)
	if err != nil {
		return errors.New("lightgbm: model file not found after training")
	}
	l.ModelText = string(text)
	return nil
}

// Predict returns nil when the binary is unavailable or fails; callers treat
// a short result as an artifact failure. The cause is logged.
func (l *LightGBMCLI) Predict(X [][]float64) []float64 {
	if len(X) == 0 {
		return []float64{}
	}
	ps, err := l.predict(X)
	if err != nil {
		utils.Logger().Error("lightgbm predict failed",
			zap.String("model", l.Name()),
			zap.String("exec", l.ExecPath),
			zap.Int("rows", len(X)),
			zap.Error(err))
		return nil
	}
	return ps
}

func (l *LightGBMCLI) predict(X [][]float64) ([]float64, error) {
	if l.ModelText == "" {
		return nil, errors.New("lightgbm: model is not trained")
	}
	dir, err := os.MkdirTemp("", "lgbm-predict-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	modelPath := filepath.Join(dir, "model.txt")
	if err := os.WriteFile(modelPath, []byte(l.ModelText), 0o600); err != nil {
		return nil, err
	}
	predCSV := filepath.Join(dir, "pred.csv")
	if err := writeCSVLabelFirst(predCSV, X, make([]float64, len(X))); err != nil {
		return nil, err
	}
	outPath := filepath.Join(dir, "preds.txt")
	cfg := fmt.Sprintf("task=predict\ninput_model=%s\ndata=%s\nheader=false\nlabel_column=0\noutput_result=%s\n",
		modelPath, predCSV, outPath,
	)
	if err := l.run(dir, "predict.conf", cfg); err != nil {
		return nil, err
	}

	f, err := os.Open(outPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	ps := make([]float64, 0, len(X))
	for sc.Scan() {
		var v float64
		if _, err := fmt.Sscan(sc.Text(), &v); err == nil {
			ps = append(ps, v)
		}
	}
	return ps, sc.Err()
}

func (l *LightGBMCLI) run(dir, confName, cfg string) error {
	conf := filepath.Join(dir, confName)
	if err := os.WriteFile(conf, []byte(cfg), 0o644); err != nil {
		return err
	}
	cmd := exec.Command(l.ExecPath, "config="+conf)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("lightgbm: %w: %s", err, lastLine(out))
	}
	return nil
}

func writeCSVLabelFirst(path string, X [][]float64, y []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for i := range X {
		fmt.Fprintf(w, "%g", y[i])
		for j := range X[i] {
			fmt.Fprintf(w, ",%g", X[i][j])
		}
		fmt.Fprintln(w)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}

func lastLine(b []byte) string {
	end := len(b)
	for end > 0 && (b[end-1] == '\n' || b[end-1] == '\r') {
		end--
	}
	start := end
	for start > 0 && b[start-1] != '\n' {
		start--
	}
	return string(b[start:end])
}
