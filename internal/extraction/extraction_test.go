package extraction

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/cloo-solutions/talentlens/internal/domain"
	"github.com/cloo-solutions/talentlens/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeRunner answers commands through a callback and records every call.
type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
	fn    func(name string, args []string) ([]byte, error)
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()
	return f.fn(name, args)
}

func (f *fakeRunner) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c[0]
	}
	return out
}

func onePagePDF(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "one-page.pdf"))
	require.NoError(t, err)
	return data
}

func fixedPages(n int) PageCounter {
	return func(io.ReadSeeker) (int, error) { return n, nil }
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		file domain.UploadedFile
		want Kind
	}{
		{"PDFContentType", domain.UploadedFile{Filename: "x", ContentType: "application/pdf"}, KindPDF},
		{"ImageContentType", domain.UploadedFile{Filename: "x", ContentType: "image/jpeg"}, KindImage},
		{"TextWithCharset", domain.UploadedFile{Filename: "x", ContentType: "text/plain; charset=utf-8"}, KindText},
		{"PDFExtension", domain.UploadedFile{Filename: "CV.PDF", ContentType: domain.DefaultContentType}, KindPDF},
		{"TiffExtension", domain.UploadedFile{Filename: "scan.tiff"}, KindImage},
		{"MarkdownExtension", domain.UploadedFile{Filename: "cv.md"}, KindText},
		{"SniffedPDF", domain.UploadedFile{Filename: "upload", Data: []byte("%PDF-1.4\n...")}, KindPDF},
		{"SniffedPNG", domain.UploadedFile{Filename: "upload", Data: []byte("\x89PNG\r\n\x1a\n0000")}, KindImage},
		{"SniffedText", domain.UploadedFile{Filename: "upload", Data: []byte("Jane Doe, engineer")}, KindText},
		{"Unknown", domain.UploadedFile{Filename: "cv.docx", Data: []byte{0x50, 0x4b, 0x03, 0x04, 0, 0}}, KindUnknown},
		{"Empty", domain.UploadedFile{Filename: "blob"}, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.file))
		})
	}
}

func TestRouter_PlainText(t *testing.T) {
	r := NewRouter(NewPDF(nil, PDFConfig{}), NewImage(nil, "", ""), &PlainText{}, logging.Discard())

	text, err := r.ExtractText(context.Background(), domain.UploadedFile{
		Filename: "cv.txt",
		Data:     append([]byte{0xEF, 0xBB, 0xBF}, []byte("Jane \xffDoe")...),
	})

	require.NoError(t, err)
	assert.Equal(t, "Jane \uFFFDDoe", text)
}

func TestRouter_UnsupportedFormat(t *testing.T) {
	r := NewRouter(NewPDF(nil, PDFConfig{}), NewImage(nil, "", ""), &PlainText{}, logging.Discard())

	_, err := r.ExtractText(context.Background(), domain.UploadedFile{
		Filename: "cv.docx",
		Data:     []byte{0x50, 0x4b, 0x03, 0x04, 0, 0},
	})

	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestRouter_Image(t *testing.T) {
	runner := &fakeRunner{fn: func(name string, args []string) ([]byte, error) {
		assert.Equal(t, "tesseract", name)
		assert.True(t, strings.HasSuffix(args[0], "source.png"))
		assert.Equal(t, []string{"stdout", "-l", "deu"}, args[1:])
		return []byte("Max Mustermann\n"), nil
	}}
	r := NewRouter(NewPDF(runner, PDFConfig{}), NewImage(runner, "", "deu"), &PlainText{}, logging.Discard())

	text, err := r.ExtractText(context.Background(), domain.UploadedFile{Filename: "scan.PNG", Data: []byte("png")})

	require.NoError(t, err)
	assert.Equal(t, "Max Mustermann\n", text)
}

func TestRouter_ImageToolFailure(t *testing.T) {
	runner := &fakeRunner{fn: func(string, []string) ([]byte, error) {
		return nil, errors.New("exit status 1")
	}}
	r := NewRouter(NewPDF(runner, PDFConfig{}), NewImage(runner, "", ""), &PlainText{}, logging.Discard())

	_, err := r.ExtractText(context.Background(), domain.UploadedFile{Filename: "a.jpg", Data: []byte("x")})

	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
	assert.ErrorContains(t, err, "tesseract failed")
}

func TestRouter_ImageWithoutOCR(t *testing.T) {
	r := NewRouter(NewPDF(nil, PDFConfig{}), nil, &PlainText{}, logging.Discard())

	_, err := r.ExtractText(context.Background(), domain.UploadedFile{Filename: "a.png", Data: []byte("x")})

	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestPDF_TextLayer(t *testing.T) {
	runner := &fakeRunner{fn: func(name string, args []string) ([]byte, error) {
		assert.Equal(t, "pdftotext", name)
		assert.Equal(t, []string{"-layout", "-enc", "UTF-8"}, args[:3])
		assert.Equal(t, "-", args[4])
		return []byte("Jane Doe\nGo engineer\n"), nil
	}}
	x := NewPDF(runner, PDFConfig{OCR: NewImage(runner, "", "")})

	text, err := x.extract(context.Background(), domain.UploadedFile{Filename: "cv.pdf", Data: onePagePDF(t)})

	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nGo engineer\n", text)
	assert.Equal(t, []string{"pdftotext"}, runner.commands())
}

func TestPDF_InvalidDocument(t *testing.T) {
	runner := &fakeRunner{fn: func(string, []string) ([]byte, error) { return nil, nil }}
	x := NewPDF(runner, PDFConfig{})

	_, err := x.extract(context.Background(), domain.UploadedFile{Filename: "cv.pdf", Data: []byte("not a pdf")})

	assert.ErrorIs(t, err, ErrInvalidPDF)
	assert.Empty(t, runner.commands())
}

func TestPDF_ScannedFallsBackToOCR(t *testing.T) {
	runner := &fakeRunner{}
	runner.fn = func(name string, args []string) ([]byte, error) {
		switch name {
		case "pdftotext":
			return []byte("  \n\f"), nil
		case "pdftoppm":
			prefix := args[len(args)-1]
			for _, n := range []string{"1", "2", "3"} {
				require.NoError(t, os.WriteFile(prefix+"-"+n+".png", []byte("img"), 0o600))
			}
			return nil, nil
		case "tesseract":
			return []byte("text of " + filepath.Base(args[0]) + "\n"), nil
		}
		return nil, errors.New("unexpected command " + name)
	}
	x := NewPDF(runner, PDFConfig{OCR: NewImage(runner, "", "")})
	x.countPages = fixedPages(3)

	text, err := x.extract(context.Background(), domain.UploadedFile{Filename: "scan.pdf", Data: []byte("%PDF")})

	require.NoError(t, err)
	assert.Equal(t, "text of page-1.png\ntext of page-2.png\ntext of page-3.png", text)
}

func TestPDF_EmptyTextWithoutOCR(t *testing.T) {
	runner := &fakeRunner{fn: func(string, []string) ([]byte, error) { return []byte("\n"), nil }}
	x := NewPDF(runner, PDFConfig{})
	x.countPages = fixedPages(1)

	text, err := x.extract(context.Background(), domain.UploadedFile{Filename: "scan.pdf", Data: []byte("%PDF")})

	require.NoError(t, err)
	assert.Equal(t, "\n", text)
	assert.Equal(t, []string{"pdftotext"}, runner.commands())
}

func TestPDF_OCRPageFailure(t *testing.T) {
	runner := &fakeRunner{}
	runner.fn = func(name string, args []string) ([]byte, error) {
		switch name {
		case "pdftoppm":
			require.NoError(t, os.WriteFile(args[len(args)-1]+"-1.png", []byte("img"), 0o600))
			return nil, nil
		case "tesseract":
			return nil, errors.New("bad image")
		}
		return nil, nil
	}
	x := NewPDF(runner, PDFConfig{OCR: NewImage(runner, "", "")})
	x.countPages = fixedPages(1)

	_, err := x.extract(context.Background(), domain.UploadedFile{Filename: "scan.pdf", Data: []byte("%PDF")})

	assert.ErrorContains(t, err, "page 1")
}

// MockArchiver is a mock implementation of Archiver
type MockArchiver struct {
	mock.Mock
}

func (m *MockArchiver) Archive(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	args := m.Called(ctx, filename, contentType, data)
	return args.String(0), args.Error(1)
}

func TestArchiving(t *testing.T) {
	archiver := new(MockArchiver)
	inner := NewRouter(NewPDF(nil, PDFConfig{}), NewImage(nil, "", ""), &PlainText{}, logging.Discard())
	x := NewArchiving(inner, archiver, logging.Discard())
	file := domain.UploadedFile{Filename: "cv.txt", ContentType: "text/plain", Data: []byte("hello")}

	archiver.On("Archive", mock.Anything, "cv.txt", "text/plain", []byte("hello")).Return("resumes/abc/cv.txt", nil).Once()
	text, err := x.ExtractText(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	archiver.On("Archive", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("s3 down")).Once()
	text, err = x.ExtractText(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	archiver.AssertExpectations(t)
}

func TestExecRunner(t *testing.T) {
	if err := CheckAvailable("echo"); err != nil {
		t.Skip("echo not available")
	}

	out, err := ExecRunner{}.Run(context.Background(), "echo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))

	err = CheckAvailable("definitely-not-a-real-tool")
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestPdfcpuPageCount(t *testing.T) {
	n, err := pdfcpuPageCount(strings.NewReader(string(onePagePDF(t))))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
