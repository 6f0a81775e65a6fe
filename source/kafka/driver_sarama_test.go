package kafka

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/IBM/sarama"
)

type fakeSession struct {
	ctx    context.Context
	marked []int64
}

func (s *fakeSession) Claims() map[string][]int32 { return nil }
func (s *fakeSession) MemberID() string { return "m" }
func (s *fakeSession) GenerationID() int32 { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string) {}
func (s *fakeSession) Commit() {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) { s.marked = append(s.marked, msg.Offset) }
func (s *fakeSession) Context() context.Context { return s.ctx }

type fakeClaim struct {
	msgs chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Topic() string { return "edits" }
func (c *fakeClaim) Partition() int32 { return 0 }
func (c *fakeClaim) InitialOffset() int64 { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64 { return 0 }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.msgs }

func TestGroupHandler_EmitsEditsAndMarks(t *testing.T) {
	claim := &fakeClaim{msgs: make(chan *sarama.ConsumerMessage, 2)}
	claim.msgs <- &sarama.ConsumerMessage{Topic: "edits", Key: []byte("doc-1"), Value: []byte("<a/>"), Offset: 10}
	claim.msgs <- &sarama.ConsumerMessage{Topic: "edits", Value: []byte("<b/>"), Offset: 11}
	close(claim.msgs)

	var got []Edit
	h := &groupHandler{emit: func(e Edit) error { got = append(got, e); return nil }}
	sess := &fakeSession{ctx: context.Background()}

	if err := h.ConsumeClaim(sess, claim); err != nil {
		t.Fatalf("ConsumeClaim: %v", err)
	}
	if len(got) != 2 || got[0] != (Edit{"doc-1", "<a/>"}) || got[1] != (Edit{"edits", "<b/>"}) {
		t.Fatalf("edits = %+v", got)
	}
	if len(sess.marked) != 2 || sess.marked[1] != 11 {
		t.Fatalf("marked = %v", sess.marked)
	}
}

func TestGroupHandler_EmitErrorStopsWithoutMarking(t *testing.T) {
	claim := &fakeClaim{msgs: make(chan *sarama.ConsumerMessage, 1)}
	claim.msgs <- &sarama.ConsumerMessage{Key: []byte("d"), Offset: 3}

	boom := errors.New("hub closed")
	h := &groupHandler{emit: func(Edit) error { return boom }}
	sess := &fakeSession{ctx: context.Background()}

	if err := h.ConsumeClaim(sess, claim); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if len(sess.marked) != 0 {
		t.Fatalf("message marked despite emit failure: %v", sess.marked)
	}
}

func TestGroupHandler_StopsOnSessionDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := &groupHandler{emit: func(Edit) error { return nil }}
	err := h.ConsumeClaim(&fakeSession{ctx: ctx}, &fakeClaim{msgs: make(chan *sarama.ConsumerMessage)})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadConfig_FileEnvAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kafka.yml")
	yml := []byte(`schema_version: v1
brokers: [localhost:9092]
topics: [edits]
start_from: oldest
`)
	if err := os.WriteFile(path, yml, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("PRETTIFY_KAFKA__GROUP_ID", "editors")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.GroupID != "editors" {
		t.Fatalf("group_id = %q, want env override", cfg.GroupID)
	}
	if cfg.StartFrom != "oldest" || len(cfg.Topics) != 1 || cfg.Topics[0] != "edits" {
		t.Fatalf("unexpected cfg %+v", cfg)
	}
	if cfg.CommitInt != time.Second || cfg.Version == "" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadConfig_RejectsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kafka.yml")
	_ = os.WriteFile(path, []byte("schema_version: v9\n"), 0o644)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected schema error")
	}
}

func TestNewAdapter_Unknown(t *testing.T) {
	if _, err := NewAdapter("kgo"); err == nil {
		t.Fatal("expected error for unregistered driver")
	}
	Register("sarama", func() Adapter { return &SaramaDriver{} })
	if a, err := NewAdapter("sarama"); err != nil || a == nil {
		t.Fatalf("NewAdapter(sarama) = %v, %v", a, err)
	}
}

func TestSaramaDriver_ConfigureValidates(t *testing.T) {
	var d SaramaDriver
	if err := d.Configure(Config{Topics: []string{"t"}, Version: "2.8.0"}); err == nil {
		t.Fatal("expected error without brokers")
	}
	if err := d.Configure(Config{Brokers: []string{"localhost:1"}, Version: "2.8.0"}); err == nil {
		t.Fatal("expected error without topics")
	}
	if err := d.Configure(Config{Brokers: []string{"localhost:1"}, Topics: []string{"t"}, Version: "x.y"}); err == nil {
		t.Fatal("expected error for bad version")
	}
}
