package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/joseph-ayodele/docuextract/constants"
	"github.com/joseph-ayodele/docuextract/internal/classify"
	"github.com/joseph-ayodele/docuextract/internal/common"
	"github.com/joseph-ayodele/docuextract/internal/entity"
	"github.com/joseph-ayodele/docuextract/internal/llm"
	"github.com/joseph-ayodele/docuextract/internal/metrics"
	"github.com/joseph-ayodele/docuextract/internal/pipeline"
	"github.com/joseph-ayodele/docuextract/internal/repository"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func minimalPDF() []byte {
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>",
	}
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", len(objs)+1)
	b.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return b.Bytes()
}

type extractorFunc func(ctx context.Context, req llm.ExtractRequest) (llm.Result, []byte, error)

func (f extractorFunc) ExtractFields(ctx context.Context, req llm.ExtractRequest) (llm.Result, []byte, error) {
	return f(ctx, req)
}

type listerFunc func(ctx context.Context) ([]llm.ModelDescriptor, error)

func (f listerFunc) ListModels(ctx context.Context) ([]llm.ModelDescriptor, error) { return f(ctx) }

func sp(s string) *string { return &s }

func okExtractor() extractorFunc {
	return func(_ context.Context, req llm.ExtractRequest) (llm.Result, []byte, error) {
		model := llm.SelectModel(req.DocumentType, "")
		return llm.Result{
			Fields:         llm.DocumentFields{Name: sp("Max Muster"), PostalCode: sp("10115")},
			Model:          model,
			RequestedModel: model,
			Cost:           llm.EstimateCost(model),
			ProcessingTime: 1500 * time.Millisecond,
		}, nil, nil
	}
}

type fixture struct {
	store   *repository.DocumentStore
	pipe    *pipeline.Pipeline
	hub     *Hub
	handler http.Handler
	srv     *httptest.Server
}

func newFixture(t *testing.T, ex llm.FieldExtractor, models llm.ModelLister) *fixture {
	t.Helper()
	store := repository.NewDocumentStore(quiet())
	pipe, err := pipeline.New(pipeline.Config{}, pipeline.Deps{
		Store:      store,
		Extractor:  ex,
		Classifier: classify.Fixed(constants.DocumentTypeTyped),
	}, quiet())
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	hub := NewHub(quiet())
	store.Subscribe(hub.Publish)

	s, err := New(Deps{Documents: pipe, Store: store, Extractor: ex, Models: models, Hub: hub}, quiet())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	handler := s.Routes()
	srv := httptest.NewServer(handler)
	t.Cleanup(func() {
		srv.Close()
		hub.Close()
		_ = pipe.Shutdown(context.Background())
	})
	return &fixture{store: store, pipe: pipe, hub: hub, handler: handler, srv: srv}
}

type part struct {
	field, name, contentType string
	data                     []byte
}

func multipartBody(t *testing.T, parts []part, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.field, p.name))
		h.Set("Content-Type", p.contentType)
		w, err := mw.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = w.Write(p.data)
	}
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &body, mw.FormDataContentType()
}

func post(t *testing.T, url string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, contentType, body)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestHealthAndUploadLiveness(t *testing.T) {
	f := newFixture(t, okExtractor(), nil)
	for _, path := range []string{"/health", "/api/upload"} {
		resp, err := http.Get(f.srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		got := decode[map[string]bool](t, resp)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK || !got["ok"] {
			t.Errorf("%s = %d %v", path, resp.StatusCode, got)
		}
		if resp.Header.Get(requestIDHeader) == "" {
			t.Errorf("%s: missing request id header", path)
		}
	}
}

func TestUploadCheck(t *testing.T) {
	f := newFixture(t, okExtractor(), nil)

	body, ct := multipartBody(t, []part{{"file", "form.pdf", constants.PDFMIMEType, minimalPDF()}}, nil)
	resp := post(t, f.srv.URL+"/api/upload", body, ct)
	got := decode[uploadCheckResponse](t, resp)
	if resp.StatusCode != http.StatusOK || !got.OK || got.Pages != 1 || got.Name != "form.pdf" {
		t.Errorf("pdf upload = %d %+v", resp.StatusCode, got)
	}

	body, ct = multipartBody(t, []part{{"file", "photo.png", "image/png", []byte("png")}}, nil)
	resp = post(t, f.srv.URL+"/api/upload", body, ct)
	e := decode[llm.ErrorResponse](t, resp)
	if resp.StatusCode != http.StatusBadRequest || e.Error != "Only PDF files are allowed" || e.Code != common.CodeInvalidInput {
		t.Errorf("png upload = %d %+v", resp.StatusCode, e)
	}

	big := make([]byte, constants.MaxUploadBytes+1)
	body, ct = multipartBody(t, []part{{"file", "big.pdf", constants.PDFMIMEType, big}}, nil)
	resp = post(t, f.srv.URL+"/api/upload", body, ct)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("oversize upload = %d", resp.StatusCode)
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func TestSingleFileEndpointsCapRequestBody(t *testing.T) {
	var calls int
	f := newFixture(t, extractorFunc(func(context.Context, llm.ExtractRequest) (llm.Result, []byte, error) {
		calls++
		return llm.Result{}, nil, nil
	}), nil)

	huge := make([]byte, 2*maxSingleUploadBytes)
	for _, path := range []string{"/api/upload", "/api/extract"} {
		body, ct := multipartBody(t, []part{{"file", "huge.pdf", constants.PDFMIMEType, huge}}, nil)
		total := int64(body.Len())
		cr := &countingReader{r: body}

		req := httptest.NewRequest(http.MethodPost, path, cr)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", path, rec.Code)
		}
		var e llm.ErrorResponse
		if err := json.NewDecoder(rec.Body).Decode(&e); err != nil {
			t.Fatalf("%s: decode: %v", path, err)
		}
		if e.Code != common.CodeInvalidInput || !strings.Contains(e.Error, "too large") {
			t.Errorf("%s: error = %+v", path, e)
		}
		if cr.n > maxSingleUploadBytes+1 || cr.n >= total {
			t.Errorf("%s: read %d of %d bytes, want at most %d", path, cr.n, total, maxSingleUploadBytes+1)
		}
	}
	if calls != 0 {
		t.Errorf("extractor called %d times", calls)
	}
}

func TestExtractSuccessAndErrorShape(t *testing.T) {
	var (
		mu      sync.Mutex
		gotType constants.DocumentType
		calls   int
	)
	lastType := func() constants.DocumentType {
		mu.Lock()
		defer mu.Unlock()
		return gotType
	}
	ex := extractorFunc(func(ctx context.Context, req llm.ExtractRequest) (llm.Result, []byte, error) {
		mu.Lock()
		calls++
		gotType = req.DocumentType
		n := calls
		mu.Unlock()
		if n == 2 {
			return llm.Result{}, nil, common.ServiceUnavailableError("generation failed", errors.New("model not found"), "set GEMINI_MODEL")
		}
		return okExtractor()(ctx, req)
	})
	f := newFixture(t, ex, nil)

	body, ct := multipartBody(t, []part{{"file", "a.pdf", constants.PDFMIMEType, []byte("%PDF")}}, map[string]string{"type": "handwritten"})
	resp := post(t, f.srv.URL+"/api/extract", body, ct)
	ok := decode[llm.ExtractResponse](t, resp)
	if resp.StatusCode != http.StatusOK || ok.Model != llm.HeavyModel || *ok.Data.Name != "Max Muster" || ok.ProcessingTime != 1.5 {
		t.Errorf("extract = %d %+v", resp.StatusCode, ok)
	}
	if got := lastType(); got != constants.DocumentTypeHandwritten {
		t.Errorf("type = %q", got)
	}

	body, ct = multipartBody(t, []part{{"file", "a.pdf", constants.PDFMIMEType, []byte("%PDF")}}, nil)
	resp = post(t, f.srv.URL+"/api/extract", body, ct)
	e := decode[llm.ErrorResponse](t, resp)
	if resp.StatusCode != http.StatusBadGateway || e.Code != common.CodeServiceUnavailable ||
		e.Details != "model not found" || e.Hint != "set GEMINI_MODEL" {
		t.Errorf("error = %d %+v", resp.StatusCode, e)
	}
	if got := lastType(); got != constants.DocumentTypeTyped {
		t.Errorf("missing type should default to typed, got %q", got)
	}

	body, ct = multipartBody(t, nil, map[string]string{"type": "typed"})
	resp = post(t, f.srv.URL+"/api/extract", body, ct)
	e = decode[llm.ErrorResponse](t, resp)
	if resp.StatusCode != http.StatusBadRequest || e.Error != "No file provided" {
		t.Errorf("no file = %d %+v", resp.StatusCode, e)
	}
}

func TestListModels(t *testing.T) {
	lister := listerFunc(func(context.Context) ([]llm.ModelDescriptor, error) {
		return []llm.ModelDescriptor{{Name: "models/gemini-1.5-pro"}, {Name: "models/text-bison"}}, nil
	})
	f := newFixture(t, okExtractor(), lister)

	resp, err := http.Get(f.srv.URL + "/api/extract")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	got := decode[modelsResponse](t, resp)
	if len(got.Models) != 2 || len(got.GeminiCandidates) != 1 || got.GeminiCandidates[0] != "models/gemini-1.5-pro" {
		t.Errorf("models = %+v", got)
	}
}

func TestDocumentLifecycle(t *testing.T) {
	f := newFixture(t, okExtractor(), nil)

	body, ct := multipartBody(t, []part{
		{"files", "one.pdf", constants.PDFMIMEType, []byte("%PDF-1")},
		{"files", "two.pdf", constants.PDFMIMEType, []byte("%PDF-2")},
		{"files", "notes.txt", "text/plain", []byte("hi")},
	}, nil)
	resp := post(t, f.srv.URL+"/api/documents", body, ct)
	sub := decode[submitResponse](t, resp)
	if resp.StatusCode != http.StatusAccepted || len(sub.Accepted) != 2 || len(sub.Rejected) != 1 {
		t.Fatalf("submit = %d %+v", resp.StatusCode, sub)
	}
	if sub.Rejected[0].Reason != "Only PDF files are allowed" {
		t.Errorf("rejection = %+v", sub.Rejected[0])
	}
	f.pipe.Wait()

	r, err := http.Get(f.srv.URL + "/api/documents")
	if err != nil {
		t.Fatal(err)
	}
	docs := decode[[]entity.Document](t, r)
	_ = r.Body.Close()
	if len(docs) != 2 || docs[0].SourceFile.Name != "one.pdf" {
		t.Fatalf("list = %+v", docs)
	}
	for _, d := range docs {
		if d.Status != constants.StatusCompleted || d.Progress != 100 || d.ExtractedData == nil {
			t.Errorf("document = %+v", d)
		}
	}

	id := docs[0].ID.String()
	r, _ = http.Get(f.srv.URL + "/api/documents/" + id)
	one := decode[entity.Document](t, r)
	_ = r.Body.Close()
	if one.ID != docs[0].ID {
		t.Errorf("get = %+v", one)
	}

	resp = post(t, f.srv.URL+"/api/documents/"+id+"/retry", nil, "")
	if got := decode[map[string]bool](t, resp); resp.StatusCode != http.StatusOK || got["retried"] {
		t.Errorf("retry of completed = %d %v", resp.StatusCode, got)
	}

	r, _ = http.Get(f.srv.URL + "/api/metrics")
	sum := decode[metrics.Summary](t, r)
	_ = r.Body.Close()
	if sum.TotalDocuments != 2 || sum.SuccessCount != 2 || sum.SuccessRate != 100 || sum.ModelUsage.Flash != 2 {
		t.Errorf("metrics = %+v", sum)
	}

	req, _ := http.NewRequest(http.MethodDelete, f.srv.URL+"/api/documents/"+id, nil)
	r, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	_ = r.Body.Close()
	if r.StatusCode != http.StatusNoContent {
		t.Errorf("delete = %d", r.StatusCode)
	}
	r, _ = http.DefaultClient.Do(req)
	_ = r.Body.Close()
	if r.StatusCode != http.StatusNotFound {
		t.Errorf("second delete = %d", r.StatusCode)
	}

	r, _ = http.Get(f.srv.URL + "/api/documents/" + id)
	_ = r.Body.Close()
	if r.StatusCode != http.StatusNotFound {
		t.Errorf("get removed = %d", r.StatusCode)
	}
	resp = post(t, f.srv.URL+"/api/documents/"+id+"/retry", nil, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("retry removed = %d", resp.StatusCode)
	}

	r, _ = http.Get(f.srv.URL + "/api/documents/not-a-uuid")
	_ = r.Body.Close()
	if r.StatusCode != http.StatusBadRequest {
		t.Errorf("bad id = %d", r.StatusCode)
	}
}

func TestExportThenImport(t *testing.T) {
	f := newFixture(t, okExtractor(), nil)
	body, ct := multipartBody(t, []part{{"files", "one.pdf", constants.PDFMIMEType, []byte("%PDF-1")}}, nil)
	post(t, f.srv.URL+"/api/documents", body, ct)
	f.pipe.Wait()

	r, err := http.Get(f.srv.URL + "/api/export?format=json")
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(r.Body)
	_ = r.Body.Close()
	if r.StatusCode != http.StatusOK || !strings.Contains(r.Header.Get("Content-Disposition"), "docuextract-") {
		t.Fatalf("export = %d %v", r.StatusCode, r.Header)
	}

	resp := post(t, f.srv.URL+"/api/documents/import", bytes.NewReader(data), "application/json")
	got := decode[map[string]any](t, resp)
	if resp.StatusCode != http.StatusCreated || got["imported"] != float64(1) {
		t.Errorf("import = %d %v", resp.StatusCode, got)
	}
	all, _ := f.store.ListAll(context.Background())
	if len(all) != 2 || all[1].ID == all[0].ID || *all[1].ExtractedData.Name != "Max Muster" {
		t.Errorf("after import = %+v", all)
	}

	r, _ = http.Get(f.srv.URL + "/api/export?format=pdf")
	_ = r.Body.Close()
	if r.StatusCode != http.StatusBadRequest {
		t.Errorf("bad format = %d", r.StatusCode)
	}
}

func TestHubDeliversStoreChanges(t *testing.T) {
	f := newFixture(t, okExtractor(), nil)

	wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for f.hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	doc := entity.NewDocument(entity.SourceFile{Name: "ws.pdf"}, time.Now())
	if err := f.store.CreateMany(context.Background(), []entity.Document{doc}); err != nil {
		t.Fatal(err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var change repository.Change
	if err := conn.ReadJSON(&change); err != nil {
		t.Fatalf("read: %v", err)
	}
	if change.Kind != repository.ChangeCreated || change.Document.ID != doc.ID {
		t.Errorf("change = %+v", change)
	}
}
