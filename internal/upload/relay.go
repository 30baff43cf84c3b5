package upload

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"catalog-be/internal/logger"
	"catalog-be/internal/metrics"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

const (
	DefaultFolder   = "products"
	DefaultMaxBytes = 5 << 20
)

type Credentials struct {
	CloudName string
	APIKey    string
	APISecret string
}

// Missing returns the environment variable names of the empty credentials.
func (c Credentials) Missing() []string {
	var out []string
	if c.CloudName == "" {
		out = append(out, "CLOUDINARY_CLOUD_NAME")
	}
	if c.APIKey == "" {
		out = append(out, "CLOUDINARY_API_KEY")
	}
	if c.APISecret == "" {
		out = append(out, "CLOUDINARY_API_SECRET")
	}
	return out
}

type File struct {
	Name        string
	ContentType string
	Data        []byte
}

type Result struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

// MediaHost stores a data URI under folder and returns where it lives.
type MediaHost interface {
	Upload(ctx context.Context, dataURI, folder string) (*Result, error)
}

type HostFactory func(Credentials) (MediaHost, error)

type Config struct {
	Credentials Credentials
	Folder      string
	MaxBytes    int64
}

type Relay struct {
	cfg     Config
	newHost HostFactory
	metrics *metrics.Registry
}

func NewRelay(cfg Config, newHost HostFactory, reg *metrics.Registry) *Relay {
	if cfg.Folder == "" {
		cfg.Folder = DefaultFolder
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	return &Relay{cfg: cfg, newHost: newHost, metrics: reg}
}

func (r *Relay) MaxBytes() int64 {
	return r.cfg.MaxBytes
}

// CheckConfig fails with a *ConfigError when any credential is empty.
func (r *Relay) CheckConfig() error {
	if missing := r.cfg.Credentials.Missing(); len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}
	return nil
}

// DetectImage sniffs the content of data. The declared type of the upload
// is not trusted.
func DetectImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file", ErrInvalidFile)
	}

	mt := mimetype.Detect(data).String()
	if !strings.HasPrefix(mt, "image/") {
		return "", fmt.Errorf("%w: detected %s", ErrInvalidFile, mt)
	}
	return mt, nil
}

func DataURI(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Upload validates f and forwards it to the media host as a data URI.
func (r *Relay) Upload(ctx context.Context, f File) (*Result, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "upload"),
		zap.String("file", f.Name),
		zap.Int("size", len(f.Data)),
	)

	if err := r.CheckConfig(); err != nil {
		log.Error("upload rejected", zap.Error(err))
		return nil, err
	}

	if int64(len(f.Data)) > r.cfg.MaxBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, r.cfg.MaxBytes)
	}

	contentType, err := DetectImage(f.Data)
	if err != nil {
		log.Info("upload rejected", zap.String("declared_type", f.ContentType), zap.Error(err))
		return nil, err
	}

	host, err := r.newHost(r.cfg.Credentials)
	if err != nil {
		r.metrics.Counter(metrics.UploadFailures).Inc()
		return nil, fmt.Errorf("configure media host: %w", err)
	}

	res, err := host.Upload(ctx, DataURI(contentType, f.Data), r.cfg.Folder)
	if err != nil {
		r.metrics.Counter(metrics.UploadFailures).Inc()
		log.Error("media host upload failed", zap.Error(err))
		return nil, err
	}

	r.metrics.Counter(metrics.Uploads).Inc()
	log.Info("image uploaded",
		zap.String("content_type", contentType),
		zap.String("public_id", res.PublicID),
	)
	return res, nil
}
