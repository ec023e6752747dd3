// Package media строит публичные адреса объектов хранилища.
package media

import (
	"net/url"
	"strings"

	"adzopay/internal/domain"
)

// Resolver превращает путь объекта в публичный URL бакета.
type Resolver struct {
	base   string
	bucket string
}

var _ domain.MediaResolver = Resolver{}

// NewResolver создаёт резолвер для baseURL вида https://project.example.co.
func NewResolver(baseURL, bucket string) Resolver {
	return Resolver{
		base:   strings.TrimRight(baseURL, "/"),
		bucket: strings.Trim(bucket, "/"),
	}
}

// PublicURL возвращает <base>/storage/v1/object/public/<bucket>/<path>.
// Префикс бакета в пути не дублируется.
func (r Resolver) PublicURL(storagePath string) string {
	p := strings.TrimLeft(storagePath, "/")
	if p == "" {
		return ""
	}
	if r.bucket != "" {
		p = strings.TrimPrefix(p, r.bucket+"/")
	}
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	prefix := r.base + "/storage/v1/object/public/"
	if r.bucket != "" {
		prefix += r.bucket + "/"
	}
	return prefix + strings.Join(segments, "/")
}
