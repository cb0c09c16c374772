package cli

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/happyhackingspace/lola/internal/markup"
	"github.com/happyhackingspace/lola/internal/storage"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRunTrainRecordsRun(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "train.en")
	target := filepath.Join(dir, "train.fr")
	writeFile(t, source, "the house\nthe book\na book\n")
	writeFile(t, target, "das haus\ndas buch\nein buch\n")

	opts := &trainOptions{
		null:    "<NULL>",
		stages:  "ibm1:3,ibm2:2",
		maxJump: 10,
		logZero: -99,
		output:  filepath.Join(dir, "train.align"),
		entropy: filepath.Join(dir, "entropy.tsv"),
		db:      filepath.Join(dir, "runs.db"),
		minProb: 0.1,
	}
	if err := runTrain(source, target, opts); err != nil {
		t.Fatal(err)
	}

	out, err := os.ReadFile(opts.output)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d alignment lines, want 3: %q", len(lines), out)
	}

	trace, err := os.ReadFile(opts.entropy)
	if err != nil {
		t.Fatal(err)
	}
	// baseline plus iterations for each stage
	if n := strings.Count(string(trace), "\n"); n != 4+3 {
		t.Errorf("got %d trace lines, want 7", n)
	}

	s, err := storage.Open(opts.db)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = s.Close() }()
	runs, err := s.Runs()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Sentences != 3 || !runs[0].LogLikelihood.Valid {
		t.Fatalf("runs = %+v", runs)
	}
	points, err := s.Entropies(runs[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 7 {
		t.Errorf("stored %d entropy points, want 7", len(points))
	}
	translations, err := s.Translations(runs[0].ID, "house")
	if err != nil {
		t.Fatal(err)
	}
	if len(translations) == 0 || translations[0].Target != "haus" {
		t.Errorf("translations of house = %+v", translations)
	}
}

func TestRunTrainFailureMarksRun(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "train.en")
	target := filepath.Join(dir, "train.fr")
	// an empty source sentence without NULL leaves its target word no mass
	writeFile(t, source, "the house\n\n")
	writeFile(t, target, "das haus\nja\n")

	opts := &trainOptions{
		noNull:  true,
		stages:  "ibm1:2",
		maxJump: 10,
		logZero: -99,
		output:  filepath.Join(dir, "train.align"),
		db:      filepath.Join(dir, "runs.db"),
	}
	if err := runTrain(source, target, opts); err == nil {
		t.Fatal("expected training to fail")
	}

	s, err := storage.Open(opts.db)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = s.Close() }()
	runs, err := s.Runs()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	r := runs[0]
	if r.Status != storage.StatusFailed || !strings.Contains(r.Error, "zero probability mass") {
		t.Errorf("status = %q, error = %q", r.Status, r.Error)
	}
	if r.LogLikelihood.Valid {
		t.Errorf("failed run has a log-likelihood: %+v", r.LogLikelihood)
	}

	var buf bytes.Buffer
	if err := printRuns(&buf, runs); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "failed") {
		t.Errorf("runs listing does not show the failure: %q", buf.String())
	}
}

func TestRunTrainBadStages(t *testing.T) {
	if err := runTrain("a", "b", &trainOptions{stages: "ibm3:1"}); err == nil {
		t.Error("expected error for unknown model")
	}
}

func tarGz(t *testing.T, files map[string]string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0644, Size: int64(len(content)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf
}

func TestExtractTarGz(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "data")
	n, err := extractTarGz(tarGz(t, map[string]string{
		"hansards/train.en": "the house\n",
		"hansards/train.fr": "la maison\n",
	}), dest)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("extracted %d files, want 2", n)
	}
	got, err := os.ReadFile(filepath.Join(dest, "hansards", "train.fr"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "la maison\n" {
		t.Errorf("train.fr = %q", got)
	}
}

func TestExtractTarGzRejectsEscape(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "data")
	_, err := extractTarGz(tarGz(t, map[string]string{"../evil": "x"}), dest)
	if err == nil {
		t.Error("expected error for entry outside destination")
	}
}

func TestImportTMX(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "memory.tmx")
	writeFile(t, path, `<tmx version="1.4"><body>
<tu><tuv xml:lang="en"><seg>The dog</seg></tuv><tuv xml:lang="fr"><seg>Le chien</seg></tuv></tu>
<tu><tuv xml:lang="en"><seg>A cat</seg></tuv><tuv xml:lang="fr"><seg>Un chat</seg></tuv></tu>
</body></tmx>`)

	prefix := filepath.Join(dir, "out", "corpus")
	opts := markup.TMXOptions{SourceLang: "en", TargetLang: "fr", Lowercase: true}
	if err := importTMX(path, prefix, opts); err != nil {
		t.Fatal(err)
	}
	en, _ := os.ReadFile(prefix + ".en")
	fr, _ := os.ReadFile(prefix + ".fr")
	if string(en) != "the dog\na cat\n" || string(fr) != "le chien\nun chat\n" {
		t.Errorf("got %q / %q", en, fr)
	}

	opts.TargetLang = "de"
	if err := importTMX(path, prefix, opts); err == nil {
		t.Error("expected error when no units match")
	}
}

func TestParseRunID(t *testing.T) {
	if id, err := parseRunID("12"); err != nil || id != 12 {
		t.Errorf("parseRunID(12) = %d, %v", id, err)
	}
	for _, s := range []string{"", "0", "-3", "abc"} {
		if _, err := parseRunID(s); err == nil {
			t.Errorf("parseRunID(%q) succeeded", s)
		}
	}
}

func TestPrintTrace(t *testing.T) {
	var buf bytes.Buffer
	err := printTrace(&buf, []storage.EntropyPoint{
		{Stage: 1, Model: "ibm1", Iteration: 0, Value: 2.5},
		{Stage: 1, Model: "ibm1", Iteration: 1, Value: 1.25},
	})
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "STAGE") || !strings.Contains(out, "1.250000") {
		t.Errorf("trace output = %q", out)
	}
}
