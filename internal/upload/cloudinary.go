package upload

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

type cloudinaryHost struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryHost is the HostFactory used in production.
func NewCloudinaryHost(c Credentials) (MediaHost, error) {
	cld, err := cloudinary.NewFromParams(c.CloudName, c.APIKey, c.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	return &cloudinaryHost{cld: cld}, nil
}

func (h *cloudinaryHost) Upload(ctx context.Context, dataURI, folder string) (*Result, error) {
	resp, err := h.cld.Upload.Upload(ctx, dataURI, uploader.UploadParams{
		Folder:       folder,
		ResourceType: "auto",
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	if resp.Error.Message != "" {
		return nil, errors.New(resp.Error.Message)
	}
	return &Result{URL: resp.SecureURL, PublicID: resp.PublicID}, nil
}
