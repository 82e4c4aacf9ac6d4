package domain

import (
	"fmt"
	"strings"
	"time"
)

// Partition identifies the single object one run writes in the data lake.
type Partition struct {
	Bucket      string
	Layer       string
	Source      string
	RunDate     time.Time
	FileName    string // without extension, e.g. "part-000"
	Format      string // file extension and COPY format, e.g. "parquet"
	Compression string // codec name, e.g. "zstd"
}

// Validate checks that every path segment is present and contains no
// separators. Segments are checked in path order.
func (p Partition) Validate() error {
	segments := []struct{ name, value string }{
		{"bucket", p.Bucket},
		{"layer", p.Layer},
		{"source", p.Source},
		{"file name", p.FileName},
		{"format", p.Format},
	}
	for _, seg := range segments {
		name, v := seg.name, seg.value
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidPartition, name)
		}
		if strings.ContainsAny(v, "/\\'") || v == "." || v == ".." {
			return fmt.Errorf("%w: %s %q is not a safe path segment", ErrInvalidPartition, name, v)
		}
	}
	if p.RunDate.IsZero() {
		return fmt.Errorf("%w: run date is required", ErrInvalidPartition)
	}
	return nil
}

// Date returns the run date as YYYY-MM-DD.
func (p Partition) Date() string {
	return p.RunDate.UTC().Format(DateLayout)
}

// Key returns the object key inside the bucket.
func (p Partition) Key() string {
	return p.Layer + "/" + p.Source + "/" + p.Date() + "/" + p.FileName + "." + p.Format
}

// URI returns the s3:// location of the partition object.
func (p Partition) URI() string {
	return "s3://" + p.Bucket + "/" + p.Key()
}
