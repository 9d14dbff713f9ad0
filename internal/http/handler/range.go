package handler

import (
	"errors"
	"io"
	"mime"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sifan077/spectra/internal/app/service"
)

var errRangeNotSatisfiable = errors.New("range not satisfiable")

// byteRange is an inclusive span of a file.
type byteRange struct {
	start, end int64
}

func (r byteRange) length() int64 { return r.end - r.start + 1 }

// parseRange reads a single "bytes=" range against a file of size bytes. ok
// is false when the header is absent, malformed or lists several ranges, in
// which case the whole file is sent.
func parseRange(header string, size int64) (r byteRange, ok bool, err error) {
	ranges, found := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !found || strings.Contains(ranges, ",") {
		return byteRange{}, false, nil
	}
	first, last, found := strings.Cut(strings.TrimSpace(ranges), "-")
	if !found {
		return byteRange{}, false, nil
	}

	if first == "" {
		n, err := strconv.ParseInt(last, 10, 64)
		if err != nil || n < 0 {
			return byteRange{}, false, nil
		}
		if n == 0 || size == 0 {
			return byteRange{}, true, errRangeNotSatisfiable
		}
		return byteRange{start: max(0, size-n), end: size - 1}, true, nil
	}

	start, err := strconv.ParseInt(first, 10, 64)
	if err != nil || start < 0 {
		return byteRange{}, false, nil
	}
	end := size - 1
	if last != "" {
		if end, err = strconv.ParseInt(last, 10, 64); err != nil {
			return byteRange{}, false, nil
		}
		end = min(end, size-1)
	}
	if start >= size || start > end {
		return byteRange{}, true, errRangeNotSatisfiable
	}
	return byteRange{start: start, end: end}, true, nil
}

// limitedFile streams part of a file and closes the file when fasthttp is done.
type limitedFile struct {
	io.Reader
	io.Closer
}

// sendFile streams a File delivery, honouring a single Range request.
func sendFile(c *fiber.Ctx, d *service.Delivery) error {
	name := d.Filename
	if name == "" {
		name = d.Item.Data
	}
	c.Set(fiber.HeaderAcceptRanges, "bytes")
	c.Set(fiber.HeaderContentType, utils.GetMIME(filepath.Ext(name)))
	c.Set(fiber.HeaderContentDisposition, contentDisposition(d.Filename))

	r, partial, err := parseRange(c.Get(fiber.HeaderRange), d.Size)
	if err != nil {
		_ = d.File.Close()
		c.Set(fiber.HeaderContentRange, "bytes */"+strconv.FormatInt(d.Size, 10))
		return c.SendStatus(fiber.StatusRequestedRangeNotSatisfiable)
	}
	if !partial {
		c.Status(fiber.StatusOK)
		c.Response().SetBodyStream(d.File, int(d.Size))
		return nil
	}

	c.Status(fiber.StatusPartialContent)
	c.Set(fiber.HeaderContentRange, "bytes "+strconv.FormatInt(r.start, 10)+"-"+strconv.FormatInt(r.end, 10)+"/"+strconv.FormatInt(d.Size, 10))
	c.Response().SetBodyStream(limitedFile{
		Reader: io.NewSectionReader(d.File, r.start, r.length()),
		Closer: d.File,
	}, int(r.length()))
	return nil
}

// contentDisposition is an attachment named filename, or inline when no
// display name was recorded.
func contentDisposition(filename string) string {
	if filename == "" {
		return "inline"
	}
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}

