package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/vanderheijden86/caseview/pkg/client"
	"github.com/vanderheijden86/caseview/pkg/interaction"
	"github.com/vanderheijden86/caseview/pkg/model"
)

func twoElementDiagram() *model.Diagram {
	return &model.Diagram{
		Elements: []model.Element{
			{ID: "planItem1", Type: "HumanTask", Name: "Review", Current: true, PlanItemDefinitionID: "pid1", Width: 100, Height: 80},
			{ID: "planItem2", Type: "HumanTask", Available: true, PlanItemDefinitionID: "pid2", X: 200, Width: 100, Height: 80},
		},
		DiagramWidth:  300,
		DiagramHeight: 80,
	}
}

type fakeSource struct {
	mu    sync.Mutex
	calls []client.Ref
	err   error
}

func (f *fakeSource) ModelJSON(_ context.Context, ref client.Ref) (*model.Diagram, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ref)
	if f.err != nil {
		return nil, f.err
	}
	return twoElementDiagram(), nil
}

type post struct {
	kind string
	id   string
	doc  any
}

type fakePoster struct {
	posts []post
	err   error
}

func (f *fakePoster) ChangeState(_ context.Context, id string, doc model.ChangeStateDocument) error {
	f.posts = append(f.posts, post{"change-state", id, doc})
	return f.err
}

func (f *fakePoster) Migrate(_ context.Context, id string, doc model.MigrationDocument) error {
	f.posts = append(f.posts, post{"migrate", id, doc})
	return f.err
}

func (f *fakePoster) BatchMigrate(_ context.Context, id string, doc model.MigrationDocument) error {
	f.posts = append(f.posts, post{"batch-migrate", id, doc})
	return f.err
}

type memRecorder struct{ subs []Submission }

func (m *memRecorder) Record(_ context.Context, s Submission) error {
	m.subs = append(m.subs, s)
	return nil
}

func newTestSession(t *testing.T, cfg Config) *Session {
	t.Helper()
	if cfg.Source == nil {
		cfg.Source = &fakeSource{}
	}
	if cfg.Ref == (client.Ref{}) {
		cfg.Ref = client.Ref{InstanceID: "case-1"}
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return s
}

func click(t *testing.T, s *Session, surface interaction.Surface, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if _, err := s.Layer().Click(surface, id); err != nil {
			t.Fatalf("click %s: %v", id, err)
		}
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{Ref: client.Ref{InstanceID: "x"}}); err == nil {
		t.Error("missing source accepted")
	}
	if _, err := New(Config{Source: &fakeSource{}}); err == nil {
		t.Error("empty ref accepted")
	}
}

func TestChangeState_TerminateTwoElements(t *testing.T) {
	poster := &fakePoster{}
	rec := &memRecorder{}
	src := &fakeSource{}
	s := newTestSession(t, Config{Source: src, Poster: poster, Recorder: rec})

	click(t, s, interaction.SurfaceSource, "planItem1", "planItem2")
	if b := s.Layer().Buttons(); b.Activate || !b.Available || !b.Terminate {
		t.Fatalf("buttons = %v", b)
	}
	if err := s.ChangeState(context.Background(), model.ActionTerminate); err != nil {
		t.Fatalf("ChangeState: %v", err)
	}

	if len(poster.posts) != 1 || poster.posts[0].id != "case-1" {
		t.Fatalf("posts = %+v", poster.posts)
	}
	doc := poster.posts[0].doc.(model.ChangeStateDocument)
	if strings.Join(doc.TerminatePlanItemDefinitionIDs, ",") != "pid1,pid2" {
		t.Errorf("terminate ids = %v", doc.TerminatePlanItemDefinitionIDs)
	}
	if s.Layer().Selection().Len() != 0 || s.Layer().Buttons().Any() {
		t.Error("selection and buttons should be reset")
	}
	if len(src.calls) != 2 {
		t.Errorf("diagram should be reloaded, fetches = %d", len(src.calls))
	}
	if s.Source() == nil {
		t.Error("source diagram missing after reload")
	}
	if len(rec.subs) != 1 || rec.subs[0].Kind != KindChangeState || rec.subs[0].Err != nil {
		t.Errorf("journal = %+v", rec.subs)
	}
}

func TestChangeState_FailureKeepsSelection(t *testing.T) {
	poster := &fakePoster{err: errors.New("boom")}
	rec := &memRecorder{}
	s := newTestSession(t, Config{Poster: poster, Recorder: rec})
	click(t, s, interaction.SurfaceSource, "planItem1")

	err := s.ChangeState(context.Background(), model.ActionTerminate)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("err = %v", err)
	}
	if s.Layer().Selection().Len() != 1 {
		t.Error("selection dropped after failed POST")
	}
	if len(rec.subs) != 1 || rec.subs[0].Err == nil {
		t.Errorf("failed submission not journaled: %+v", rec.subs)
	}
}

func TestChangeState_Guards(t *testing.T) {
	poster := &fakePoster{}
	s := newTestSession(t, Config{Poster: poster})

	if err := s.ChangeState(context.Background(), model.ActionActivate); !errors.Is(err, ErrEmptySelection) {
		t.Errorf("empty selection: err = %v", err)
	}

	click(t, s, interaction.SurfaceSource, "planItem1")
	if err := s.ChangeState(context.Background(), model.ActionActivate); !errors.Is(err, ErrActionHidden) {
		t.Errorf("hidden action: err = %v", err)
	}

	declined := ConfirmFunc(func(context.Context, Prompt) (bool, error) { return false, nil })
	s.cfg.Confirmer = declined
	if err := s.ChangeState(context.Background(), model.ActionTerminate); !errors.Is(err, ErrCancelled) {
		t.Errorf("declined: err = %v", err)
	}
	if len(poster.posts) != 0 {
		t.Errorf("posts = %+v", poster.posts)
	}

	ro := newTestSession(t, Config{})
	click(t, ro, interaction.SurfaceSource, "planItem1")
	if err := ro.ChangeState(context.Background(), model.ActionTerminate); !errors.Is(err, ErrReadOnly) {
		t.Errorf("read-only: err = %v", err)
	}

	def := newTestSession(t, Config{Poster: poster, Ref: client.Ref{DefinitionID: "def-1"}})
	click(t, def, interaction.SurfaceSource, "planItem1")
	if err := def.ChangeState(context.Background(), model.ActionTerminate); !errors.Is(err, ErrNoInstance) {
		t.Errorf("definition: err = %v", err)
	}

	bpmn := newTestSession(t, Config{Poster: poster, Ref: client.Ref{ModelType: model.ModelBPMN, InstanceID: "p-1"}})
	click(t, bpmn, interaction.SurfaceSource, "planItem1")
	if err := bpmn.ChangeState(context.Background(), model.ActionTerminate); !errors.Is(err, ErrReadOnly) {
		t.Errorf("bpmn: err = %v", err)
	}
}

func TestChangeState_PromptDescribesSelection(t *testing.T) {
	var got Prompt
	s := newTestSession(t, Config{
		Poster: &fakePoster{},
		Confirmer: ConfirmFunc(func(_ context.Context, p Prompt) (bool, error) {
			got = p
			return true, nil
		}),
	})
	click(t, s, interaction.SurfaceSource, "planItem1", "planItem2")
	if err := s.ChangeState(context.Background(), model.ActionMoveToAvailable); err != nil {
		t.Fatal(err)
	}
	if got.Description != "Review, planItem2" {
		t.Errorf("description = %q", got.Description)
	}
	if _, ok := got.Document.(model.ChangeStateDocument); !ok {
		t.Errorf("document = %T", got.Document)
	}
}

func TestLoad_StaleResultDropped(t *testing.T) {
	s, err := New(Config{Source: &fakeSource{}, Ref: client.Ref{InstanceID: "case-1"}})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	first := s.StartLoad()
	second := s.StartLoad()

	late, err := s.Fetch(ctx, first)
	if err != nil {
		t.Fatal(err)
	}
	fresh, err := s.Fetch(ctx, second)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Apply(late); !errors.Is(err, ErrStaleLoad) {
		t.Errorf("late load: err = %v", err)
	}
	if s.Source() != nil {
		t.Error("stale load was applied")
	}
	if err := s.Apply(fresh); err != nil {
		t.Errorf("fresh load: %v", err)
	}

	s.Teardown()
	if err := s.Apply(fresh); !errors.Is(err, ErrStaleLoad) {
		t.Errorf("load after teardown: err = %v", err)
	}
	if s.Source() != nil || s.Active() {
		t.Error("teardown left state behind")
	}
}

func TestLoad_SourceError(t *testing.T) {
	s, err := New(Config{Source: &fakeSource{err: errors.New("offline")}, Ref: client.Ref{InstanceID: "case-1"}})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Init(context.Background()); err == nil || !strings.Contains(err.Error(), "offline") {
		t.Errorf("err = %v", err)
	}
}

func TestLoad_FetchesTargetConcurrently(t *testing.T) {
	src := &fakeSource{}
	s := newTestSession(t, Config{Source: src, MigrationTargetID: "def-2"})
	if s.Target() == nil {
		t.Fatal("target diagram not loaded")
	}
	var sawTarget bool
	for _, ref := range src.calls {
		if ref.DefinitionID == "def-2" && ref.InstanceID == "" {
			sawTarget = true
		}
	}
	if !sawTarget {
		t.Errorf("calls = %+v", src.calls)
	}
}

func TestRender_Surfaces(t *testing.T) {
	s := newTestSession(t, Config{})
	click(t, s, interaction.SurfaceSource, "planItem1")
	var b strings.Builder
	if _, err := s.Render(&b, interaction.SurfaceSource, "svg"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), `data-element-id="planItem1"`) {
		t.Error("render is missing hit regions")
	}
	if _, err := s.Render(io.Discard, interaction.SurfaceTarget, "svg"); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("target render: err = %v", err)
	}
}

// End to end against a stub admin server: load, select, terminate, reload.
func TestChangeState_HTTP(t *testing.T) {
	const body = `{"elements":[
 {"id":"planItem1","type":"HumanTask","current":true,"planItemDefinitionId":"pid1","x":0,"y":0,"width":100,"height":80},
 {"id":"planItem2","type":"HumanTask","available":true,"planItemDefinitionId":"pid2","x":200,"y":0,"width":100,"height":80}],
 "flows":[],"diagramWidth":300,"diagramHeight":80}`

	var mu sync.Mutex
	var requests []string
	var posted string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		requests = append(requests, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodPost {
			data, _ := io.ReadAll(r.Body)
			posted = string(data)
			w.WriteHeader(http.StatusOK)
			return
		}
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	c, err := client.New(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	s := newTestSession(t, Config{Source: c, Poster: c, Ref: client.Ref{InstanceID: "case-1"}})
	click(t, s, interaction.SurfaceSource, "planItem1", "planItem2")
	if err := s.ChangeState(context.Background(), model.ActionTerminate); err != nil {
		t.Fatal(err)
	}

	if posted != `{"terminatePlanItemDefinitionIds":["pid1","pid2"]}` {
		t.Errorf("body = %s", posted)
	}
	want := []string{
		"GET /rest/admin/case-instances/case-1/model-json",
		"POST /rest/admin/case-instances/case-1/change-state",
		"GET /rest/admin/case-instances/case-1/model-json",
	}
	if strings.Join(requests, "\n") != strings.Join(want, "\n") {
		t.Errorf("requests:\n%s", strings.Join(requests, "\n"))
	}
}

func TestChangeState_MissingDefinitionIDRejected(t *testing.T) {
	d := twoElementDiagram()
	d.Elements[1].PlanItemDefinitionID = ""
	poster := &fakePoster{}
	s := newTestSession(t, Config{Poster: poster, Source: staticSource{d}})
	click(t, s, interaction.SurfaceSource, "planItem1", "planItem2")

	err := s.ChangeState(context.Background(), model.ActionTerminate)
	if !errors.Is(err, interaction.ErrNoPlanItemDefinition) {
		t.Fatalf("err = %v, want ErrNoPlanItemDefinition", err)
	}
	if !strings.Contains(err.Error(), "planItem2") {
		t.Errorf("error does not name the element: %v", err)
	}
	if len(poster.posts) != 0 {
		t.Errorf("posted %+v", poster.posts)
	}
	if s.Layer().Selection().Len() != 2 {
		t.Error("selection dropped")
	}
}

// Send runs off the owning goroutine while the caller keeps reading the
// layer; Commit then applies the result on the owner.
func TestPrepareSendCommit(t *testing.T) {
	release := make(chan struct{})
	poster := &blockingPoster{release: release}
	rec := &memRecorder{}
	s := newTestSession(t, Config{Poster: poster, Recorder: rec})
	click(t, s, interaction.SurfaceSource, "planItem1")

	out, err := s.PrepareChangeState(model.ActionTerminate)
	if err != nil {
		t.Fatal(err)
	}
	if out.Migration() || out.Prompt.Title != "Terminate 1 plan item(s)?" {
		t.Errorf("outgoing = %+v", out)
	}

	done := make(chan error, 1)
	go func() { done <- out.Send(context.Background()) }()
	for i := 0; i < 50; i++ {
		s.Layer().Hover(interaction.SurfaceSource, "planItem1")
		_ = s.Layer().Buttons()
		_ = s.Layer().Highlight(interaction.SurfaceSource)
	}
	if s.Layer().Selection().Len() != 1 {
		t.Error("selection changed before commit")
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(rec.subs) != 1 || rec.subs[0].Kind != KindChangeState || rec.subs[0].At.IsZero() {
		t.Errorf("journal = %+v", rec.subs)
	}

	gen := s.generation.Load()
	s.Commit(out)
	if s.generation.Load() != gen+1 {
		t.Error("commit did not invalidate loads in flight")
	}
	if s.Source() != nil || s.Layer().Selection().Len() != 0 || s.Layer().Buttons().Any() {
		t.Error("commit left state behind")
	}
}

type blockingPoster struct {
	fakePoster
	release chan struct{}
}

func (b *blockingPoster) ChangeState(ctx context.Context, id string, doc model.ChangeStateDocument) error {
	<-b.release
	return b.fakePoster.ChangeState(ctx, id, doc)
}
