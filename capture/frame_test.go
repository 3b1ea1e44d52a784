package capture

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/glassbead-io/prism/types"
)

func TestCapture_RoundTrip(t *testing.T) {
	events := []types.Event{
		types.ThoughtEvent{Content: "analyzing sales data"},
		types.CodeEvent{Language: "tsx", Content: "export default function Viz() {}"},
		types.DataEvent{Payload: &types.QueryResult{
			Columns:  []string{"region", "total"},
			Rows:     [][]any{{"N", int64(1)}, {"S", int64(2)}},
			RowCount: 2,
		}},
		types.ErrorEvent{Message: "boom", Stage: types.StageSQLExecution},
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, ev := range events {
		if err := w.WriteEvent(ev); err != nil {
			t.Fatalf("WriteEvent failed: %v", err)
		}
	}
	if w.Count() != int64(len(events)) {
		t.Errorf("Count = %d, want %d", w.Count(), len(events))
	}

	var replayed []types.Event
	if err := Replay(&buf, func(ev types.Event) { replayed = append(replayed, ev) }); err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if len(replayed) != len(events) {
		t.Fatalf("replayed %d events, want %d", len(replayed), len(events))
	}

	thought := replayed[0].(types.ThoughtEvent)
	if thought.Content != "analyzing sales data" {
		t.Errorf("thought = %+v", thought)
	}
	code := replayed[1].(types.CodeEvent)
	if code.Language != "tsx" {
		t.Errorf("code = %+v", code)
	}
	data := replayed[2].(types.DataEvent)
	if len(data.Payload.Columns) != 2 || data.Payload.RowCount != 2 {
		t.Errorf("data = %+v", data.Payload)
	}
	errEv := replayed[3].(types.ErrorEvent)
	if errEv.Stage != types.StageSQLExecution {
		t.Errorf("error = %+v", errEv)
	}
}

func TestCapture_SequenceMonotonic(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for i := 0; i < 3; i++ {
		if err := w.WriteEvent(types.ThoughtEvent{Content: "x"}); err != nil {
			t.Fatalf("WriteEvent failed: %v", err)
		}
	}

	d := NewDecoder(&buf)
	for want := int64(1); want <= 3; want++ {
		record, err := d.ReadRecord()
		if err != nil {
			t.Fatalf("ReadRecord failed: %v", err)
		}
		if record.Seq != want {
			t.Errorf("Seq = %d, want %d", record.Seq, want)
		}
		if record.Ts == "" {
			t.Error("Ts is empty")
		}
	}
	if _, err := d.ReadRecord(); !errors.Is(err, io.EOF) {
		t.Errorf("trailing read err = %v, want EOF", err)
	}
}

func TestDecoder_TruncatedFrame(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteEvent(types.ThoughtEvent{Content: "cut short"}); err != nil {
		t.Fatalf("WriteEvent failed: %v", err)
	}

	truncated := buf.Bytes()[:buf.Len()-3]
	_, err := NewDecoder(bytes.NewReader(truncated)).ReadRecord()

	var fe *FrameError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want FrameError", err)
	}
	if fe.Kind != FrameErrorPartial {
		t.Errorf("Kind = %v, want FrameErrorPartial", fe.Kind)
	}
}

func TestDecoder_OversizedFrame(t *testing.T) {
	var prefix [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], MaxPayloadSize+1)

	_, err := NewDecoder(bytes.NewReader(prefix[:])).ReadRecord()

	var fe *FrameError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want FrameError", err)
	}
	if fe.Kind != FrameErrorTooLarge {
		t.Errorf("Kind = %v, want FrameErrorTooLarge", fe.Kind)
	}
}

func TestDecoder_UndecodablePayload(t *testing.T) {
	payload := []byte{0xc1, 0xc1, 0xc1} // reserved msgpack bytes
	var buf bytes.Buffer
	var prefix [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(payload)))
	buf.Write(prefix[:])
	buf.Write(payload)

	_, err := NewDecoder(&buf).ReadRecord()

	var fe *FrameError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want FrameError", err)
	}
	if fe.Kind != FrameErrorDecode {
		t.Errorf("Kind = %v, want FrameErrorDecode", fe.Kind)
	}
}

func TestRecord_UnknownTypeRoundTrip(t *testing.T) {
	record := Record{Seq: 1, Type: "telemetry"}
	ev, err := record.Event()
	if err != nil {
		t.Fatalf("Event failed: %v", err)
	}
	unknown, ok := ev.(types.UnknownEvent)
	if !ok {
		t.Fatalf("event type = %T, want UnknownEvent", ev)
	}
	if unknown.Tag != "telemetry" {
		t.Errorf("Tag = %q", unknown.Tag)
	}
}
