// internal/engine/file.go
package engine

import (
	"fmt"
	"io/fs"
	"net/url"
	"reflect"
	"runtime"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// PathStyle selects how separators are translated for URIs and glob matching.
// It is resolved once with HostPathStyle and passed down explicitly.
type PathStyle int

const (
	PathStylePosix PathStyle = iota
	PathStyleWindows
)

// HostPathStyle returns the path style of the running platform
func HostPathStyle() PathStyle {
	if runtime.GOOS == "windows" {
		return PathStyleWindows
	}
	return PathStylePosix
}

// ToSlash converts OS separators to forward slashes
func (s PathStyle) ToSlash(p string) string {
	if s == PathStyleWindows {
		return strings.ReplaceAll(p, `\`, "/")
	}
	return p
}

// FromSlash converts forward slashes to OS separators
func (s PathStyle) FromSlash(p string) string {
	if s == PathStyleWindows {
		return strings.ReplaceAll(p, "/", `\`)
	}
	return p
}

func (s PathStyle) String() string {
	if s == PathStyleWindows {
		return "windows"
	}
	return "posix"
}

// FileURL returns the file:// URI of an absolute path
func FileURL(absPath string, style PathStyle) string {
	p := style.ToSlash(absPath)
	if !strings.HasPrefix(p, "/") {
		// drive letters: C:/dir -> /C:/dir
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p}
	return u.String()
}

// FilePath decodes a file:// URI back into an absolute path
func FilePath(uri string, style PathStyle) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse source url: %w", err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("not a file url: %s", uri)
	}

	p := u.Path
	if style == PathStyleWindows && len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return style.FromSlash(p), nil
}

// FileBuilder maps raw stat results onto File records
type FileBuilder struct {
	Style PathStyle
}

// Build creates a File for rel (relative to the source root) and abs. info may be
// nil, for example for deletions, in which case timestamps and metadata stay empty.
func (b FileBuilder) Build(rel, abs string, info fs.FileInfo, change ChangeKind) *File {
	file := &File{
		Path:     rel,
		Source:   FileURL(abs, b.Style),
		Metadata: make(map[string]interface{}),
		Change:   change,
	}

	if info == nil {
		return file
	}

	file.ModifiedAt = info.ModTime()
	file.CreatedAt = info.ModTime()
	if birth, ok := birthTime(info); ok {
		file.CreatedAt = birth
	}
	file.Metadata = Metadata(info)
	return file
}

// Metadata copies the non-function properties of a stat result, including every
// exported field of info.Sys(), so custom FileInfo implementations carry their
// extra fields through unchanged.
func Metadata(info fs.FileInfo) map[string]interface{} {
	md := map[string]interface{}{
		"name":    info.Name(),
		"size":    info.Size(),
		"mode":    info.Mode(),
		"modTime": info.ModTime(),
		"isDir":   info.IsDir(),
	}
	if birth, ok := birthTime(info); ok {
		md["birthTime"] = birth
	}
	copySys(md, info.Sys())
	return md
}

type birthTimer interface {
	BirthTime() time.Time
}

type unixTimer interface {
	Unix() (sec int64, nsec int64)
}

func birthTime(info fs.FileInfo) (time.Time, bool) {
	bt, ok := info.(birthTimer)
	if !ok {
		return time.Time{}, false
	}
	t := bt.BirthTime()
	return t, !t.IsZero()
}

func copySys(md map[string]interface{}, sys interface{}) {
	if sys == nil {
		return
	}
	if m, ok := sys.(map[string]interface{}); ok {
		for k, v := range m {
			if v == nil || reflect.TypeOf(v).Kind() != reflect.Func {
				md[k] = v
			}
		}
		return
	}

	v := reflect.ValueOf(sys)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		// X__pad fields are syscall padding
		if !field.IsExported() || strings.HasPrefix(field.Name, "X_") {
			continue
		}
		fv := v.Field(i)
		if fv.Kind() == reflect.Func {
			continue
		}
		key := lowerFirst(field.Name)
		if _, exists := md[key]; exists {
			continue
		}
		md[key] = plainValue(fv)
	}
}

func plainValue(v reflect.Value) interface{} {
	if v.CanAddr() {
		if ut, ok := v.Addr().Interface().(unixTimer); ok {
			return time.Unix(ut.Unix())
		}
	}
	if ut, ok := v.Interface().(unixTimer); ok {
		return time.Unix(ut.Unix())
	}
	return v.Interface()
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
