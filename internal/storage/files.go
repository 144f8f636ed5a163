package storage

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

var (
	ErrEmptyFile           = errors.New("file is empty")
	ErrFileTooLarge        = errors.New("file exceeds maximum upload size")
	ErrExtensionNotAllowed = errors.New("file extension is not allowed")
	ErrInvalidKey          = errors.New("invalid storage key")
)

const maxStemLength = 100

type Validator struct {
	maxSize int64
	allowed map[string]struct{}
}

func NewValidator(maxSize int64, allowedExtensions []string) *Validator {
	allowed := make(map[string]struct{}, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}
	return &Validator{maxSize: maxSize, allowed: allowed}
}

func (v *Validator) MaxSize() int64 {
	return v.maxSize
}

func (v *Validator) Validate(fileName string, size int64) error {
	if size == 0 {
		return ErrEmptyFile
	}
	if size > v.maxSize {
		return fmt.Errorf("%w: %d > %d bytes", ErrFileTooLarge, size, v.maxSize)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if _, ok := v.allowed[ext]; !ok {
		return fmt.Errorf("%w: %q", ErrExtensionNotAllowed, ext)
	}
	return nil
}

var mimeTypes = map[string]string{
	".txt":  "text/plain",
	".py":   "text/x-python",
	".java": "text/x-java-source",
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".zip":  "application/zip",
	".rar":  "application/x-rar-compressed",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// DetectMimeType определяет тип по расширению, затем по содержимому.
func DetectMimeType(fileName string, content []byte) string {
	if mimeType, ok := mimeTypes[strings.ToLower(filepath.Ext(fileName))]; ok {
		return mimeType
	}
	if len(content) > 0 {
		return http.DetectContentType(content)
	}
	return "application/octet-stream"
}

// SubmissionKey builds the storage key for an uploaded file:
// submissions/<course>/<assignment>/<student>/YYYY/MM/DD/<stem>_<YYYYmmdd_HHMMSS>_<uuid8><ext>
func SubmissionKey(courseID, assignmentID, studentID, fileName string, at time.Time) string {
	at = at.UTC()
	ext := strings.ToLower(filepath.Ext(fileName))
	stem := sanitizeStem(strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName)))

	name := fmt.Sprintf("%s_%s_%s%s", stem, at.Format("20060102_150405"), uuid.NewString()[:8], ext)
	return path.Join(
		"submissions",
		courseID,
		assignmentID,
		studentID,
		fmt.Sprintf("%04d", at.Year()),
		fmt.Sprintf("%02d", int(at.Month())),
		fmt.Sprintf("%02d", at.Day()),
		name,
	)
}

func sanitizeStem(stem string) string {
	var b strings.Builder
	for _, r := range stem {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	out := []rune(strings.Trim(b.String(), "_"))
	if len(out) > maxStemLength {
		out = out[:maxStemLength]
	}
	if len(out) == 0 {
		return "file"
	}
	return string(out)
}

func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || path.Clean(key) != key {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}
