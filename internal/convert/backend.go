// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"fmt"
	"os"

	"github.com/PotatoDog1669/insight-pilot/internal/container"
	"github.com/PotatoDog1669/insight-pilot/pkg/types"
)

const (
	imageMarkitdown = "markitdown:latest"
	imageMarker     = "marker:latest"
)

// containerConverter pipes a PDF through a conversion container image. Both
// supported images read the document on stdin and print markdown on stdout.
type containerConverter struct {
	image   string
	runtime container.Runtime
}

// NewConverter builds a Converter for the configured backend, verifying that
// the backend's image is present in the container runtime. An empty backend
// selects markitdown.
func NewConverter(cfg types.ConversionConfig, rt container.Runtime) (Converter, error) {
	var image string
	switch cfg.Backend {
	case types.BackendMarkitdown, "":
		image = imageMarkitdown
	case types.BackendMarker:
		image = imageMarker
	default:
		return nil, fmt.Errorf("unknown conversion backend %q (supported: %s, %s)",
			cfg.Backend, types.BackendMarkitdown, types.BackendMarker)
	}
	if err := rt.ImageExists(image); err != nil {
		return nil, fmt.Errorf("%s image not available in %s: %w", image, rt.Name(), err)
	}
	return &containerConverter{image: image, runtime: rt}, nil
}

// Convert reads the PDF at pdfPath, pipes it through the container, and
// returns the resulting markdown text.
func (c *containerConverter) Convert(pdfPath string) (string, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return "", fmt.Errorf("opening PDF %s: %w", pdfPath, err)
	}
	defer f.Close()

	var out bytes.Buffer
	if err := c.runtime.Run(c.image, f, &out); err != nil {
		return "", fmt.Errorf("converting %s: %w", pdfPath, err)
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("conversion produced empty output for %s", pdfPath)
	}
	return out.String(), nil
}
