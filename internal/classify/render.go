package classify

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"os"

	"github.com/gen2brain/go-fitz"
)

const jpegQuality = 85

// RenderPages renders up to maxPages pages of a PDF to JPEG images via mupdf.
// Faxes are almost always single-page; the cap keeps request sizes bounded.
func RenderPages(pdfPath string, maxPages int) ([][]byte, error) {
	if _, err := os.Stat(pdfPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}

	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open PDF: %v", ErrRender, err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount > maxPages {
		pageCount = maxPages
	}

	var pages [][]byte
	for pageNum := 0; pageNum < pageCount; pageNum++ {
		img, err := doc.Image(pageNum)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrRender, pageNum+1, err)
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, fmt.Errorf("%w: encoding page %d: %v", ErrRender, pageNum+1, err)
		}
		pages = append(pages, buf.Bytes())
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: document has no pages", ErrRender)
	}
	return pages, nil
}
