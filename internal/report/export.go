package report

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/banshee-data/envtrack/internal/beam"
	"github.com/banshee-data/envtrack/internal/probe"
)

// ExportVersion is written into every export header.
const ExportVersion = "1.0"

// maxFrameSize bounds a single frame read back from an export.
const maxFrameSize = 16 * 1024 * 1024

// ErrExportFormat marks a malformed export stream.
var ErrExportFormat = errors.New("malformed trajectory export")

// Export is one run's trajectory with its identifying metadata.
type Export struct {
	RunID         string
	SequenceID    string
	AlgorithmType string
	ProbeKind     string
	CreatedAt     time.Time
	States        []probe.State
}

// WriteExport writes x as length-prefixed protobuf frames: a creation
// Timestamp, a header Struct, then one Struct per state.
func WriteExport(w io.Writer, x Export) error {
	if err := writeFrame(w, timestamppb.New(x.CreatedAt)); err != nil {
		return fmt.Errorf("failed to write timestamp: %w", err)
	}

	header, err := structpb.NewStruct(map[string]interface{}{
		"version":        ExportVersion,
		"run_id":         x.RunID,
		"sequence_id":    x.SequenceID,
		"algorithm_type": x.AlgorithmType,
		"probe_kind":     x.ProbeKind,
		"states":         float64(len(x.States)),
	})
	if err != nil {
		return fmt.Errorf("failed to build header: %w", err)
	}
	if err := writeFrame(w, header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, s := range x.States {
		msg, err := structpb.NewStruct(stateFields(s))
		if err != nil {
			return fmt.Errorf("failed to build state %d: %w", i, err)
		}
		if err := writeFrame(w, msg); err != nil {
			return fmt.Errorf("failed to write state %d: %w", i, err)
		}
	}
	return nil
}

// ReadExport reads a stream written by WriteExport.
func ReadExport(r io.Reader) (Export, error) {
	br := bufio.NewReader(r)
	var x Export

	ts := &timestamppb.Timestamp{}
	if err := readFrame(br, ts); err != nil {
		return x, fmt.Errorf("%w: timestamp: %v", ErrExportFormat, err)
	}
	if err := ts.CheckValid(); err != nil {
		return x, fmt.Errorf("%w: timestamp: %v", ErrExportFormat, err)
	}
	x.CreatedAt = ts.AsTime()

	header := &structpb.Struct{}
	if err := readFrame(br, header); err != nil {
		return x, fmt.Errorf("%w: header: %v", ErrExportFormat, err)
	}
	h := header.GetFields()
	if v := h["version"].GetStringValue(); v != ExportVersion {
		return x, fmt.Errorf("%w: unsupported version %q", ErrExportFormat, v)
	}
	x.RunID = h["run_id"].GetStringValue()
	x.SequenceID = h["sequence_id"].GetStringValue()
	x.AlgorithmType = h["algorithm_type"].GetStringValue()
	x.ProbeKind = h["probe_kind"].GetStringValue()
	n := int(h["states"].GetNumberValue())

	x.States = make([]probe.State, 0, n)
	for i := 0; i < n; i++ {
		msg := &structpb.Struct{}
		if err := readFrame(br, msg); err != nil {
			return x, fmt.Errorf("%w: state %d: %v", ErrExportFormat, i, err)
		}
		s, err := stateFromFields(msg.GetFields())
		if err != nil {
			return x, fmt.Errorf("%w: state %d: %v", ErrExportFormat, i, err)
		}
		x.States = append(x.States, s)
	}
	return x, nil
}

func writeFrame(w io.Writer, m proto.Message) error {
	data, err := proto.Marshal(m)
	if err != nil {
		return err
	}
	lenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBuf, uint32(len(data)))
	if _, err := w.Write(lenBuf); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func readFrame(r io.Reader, m proto.Message) error {
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return err
	}
	n := binary.LittleEndian.Uint32(lenBuf)
	if n > maxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds limit", n)
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return err
	}
	return proto.Unmarshal(data, m)
}

func floatList(v []float64) []interface{} {
	out := make([]interface{}, len(v))
	for i, f := range v {
		out[i] = f
	}
	return out
}

func stateFields(s probe.State) map[string]interface{} {
	twiss := make([]interface{}, 0, 3)
	for _, t := range s.Twiss {
		twiss = append(twiss, map[string]interface{}{
			"alpha": t.Alpha, "beta": t.Beta, "emittance": t.Emittance,
		})
	}
	return map[string]interface{}{
		"element_id":     s.ElementID,
		"hardware_id":    s.HardwareID,
		"position":       s.Position,
		"time":           s.Time,
		"kinetic_energy": s.KineticEnergy,
		"phase":          s.Phase,
		"twiss":          twiss,
		"betatron_phase": floatList(s.BetatronPhase[:]),
		"centroid":       floatList(s.Centroid[:]),
		"covariance":     floatList(s.Covariance),
	}
}

func numbers(v *structpb.Value, want int) ([]float64, error) {
	vals := v.GetListValue().GetValues()
	if want >= 0 && len(vals) != want {
		return nil, fmt.Errorf("expected %d values, got %d", want, len(vals))
	}
	if len(vals) == 0 {
		return nil, nil
	}
	out := make([]float64, len(vals))
	for i, x := range vals {
		out[i] = x.GetNumberValue()
	}
	return out, nil
}

func stateFromFields(f map[string]*structpb.Value) (probe.State, error) {
	s := probe.State{
		ElementID:     f["element_id"].GetStringValue(),
		HardwareID:    f["hardware_id"].GetStringValue(),
		Position:      f["position"].GetNumberValue(),
		Time:          f["time"].GetNumberValue(),
		KineticEnergy: f["kinetic_energy"].GetNumberValue(),
		Phase:         f["phase"].GetNumberValue(),
	}

	tw := f["twiss"].GetListValue().GetValues()
	if len(tw) != 3 {
		return s, fmt.Errorf("expected 3 twiss planes, got %d", len(tw))
	}
	for i, v := range tw {
		p := v.GetStructValue().GetFields()
		s.Twiss[i] = beam.Twiss{
			Alpha:     p["alpha"].GetNumberValue(),
			Beta:      p["beta"].GetNumberValue(),
			Emittance: p["emittance"].GetNumberValue(),
		}
	}

	mu, err := numbers(f["betatron_phase"], 3)
	if err != nil {
		return s, fmt.Errorf("betatron phase: %w", err)
	}
	copy(s.BetatronPhase[:], mu)

	c, err := numbers(f["centroid"], beam.Dim)
	if err != nil {
		return s, fmt.Errorf("centroid: %w", err)
	}
	copy(s.Centroid[:], c)

	s.Covariance, err = numbers(f["covariance"], -1)
	if err != nil {
		return s, fmt.Errorf("covariance: %w", err)
	}
	return s, nil
}
