// SPDX-License-Identifier: MPL-2.0

package producers

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"path"

	"rcbuild/pkg/fstime"
	"rcbuild/pkg/producer"
)

// ItemImages returns the producer that publishes
// <source>/<calc>/images/<name>.png to <output>/<calc>/images/<name>.png,
// re-encoded at the best PNG compression level unless image compression is
// skipped for this run.
func (s *Site) ItemImages() *producer.Producer {
	src := quotedDir(s.Config.SourceDir)
	return &producer.Producer{
		Name:       "item image",
		Patterns:   producer.MustCompile(`^` + src + `/` + s.calcPattern() + `/` + ImagesDir + `/(?P<name>[^/]+)\.png$`),
		Outputs:    producer.Substitute(path.Join(s.Config.OutputDir, "${calc}", ImagesDir, "${name}.png")),
		Categories: []producer.Category{producer.CategoryCalculator, producer.CategoryImage},
		Transform: func(_ context.Context, act producer.Activation) error {
			if err := producer.ExpectOutputs(act, 1); err != nil {
				return err
			}
			in, out := hostPath(s.Root, act.Path), hostPath(s.Root, act.Outputs[0])
			if s.Options.SkipImageCompress() {
				return fstime.CopyFile(in, out)
			}
			return CompressPNG(in, out)
		},
	}
}

// CompressPNG re-encodes the PNG at src into dst with the best compression
// level. When the result is not smaller than the original the original bytes
// are written instead.
func CompressPNG(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode %s: %w", src, err)
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode %s: %w", dst, err)
	}
	if buf.Len() >= len(data) {
		return os.WriteFile(dst, data, 0o644)
	}
	return os.WriteFile(dst, buf.Bytes(), 0o644)
}
