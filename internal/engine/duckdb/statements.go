package duckdb

import (
	"fmt"
	"strings"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/engine"
)

const redacted = "'[REDACTED]'"

// statement is one SQL command plus a rendering safe to log.
type statement struct {
	name     string
	sql      string
	redacted string
}

func plain(name, sql string) statement {
	return statement{name: name, sql: sql, redacted: sql}
}

// quoteLiteral renders s as a single-quoted SQL string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// setupStatements configures the session clock, the httpfs extension and the
// object-store connection.
func setupStatements(cfg engine.SessionConfig) []statement {
	tz := cfg.TimeZone
	if tz == "" {
		tz = "UTC"
	}
	urlStyle := cfg.URLStyle
	if urlStyle == "" {
		urlStyle = "path"
	}
	stmts := []statement{
		plain("set timezone", "SET TimeZone = "+quoteLiteral(tz)),
		plain("install httpfs", "INSTALL httpfs"),
		plain("load httpfs", "LOAD httpfs"),
		plain("set s3_url_style", "SET s3_url_style = "+quoteLiteral(urlStyle)),
		plain("set s3_endpoint", "SET s3_endpoint = "+quoteLiteral(cfg.Endpoint)),
	}
	if cfg.Region != "" {
		stmts = append(stmts, plain("set s3_region", "SET s3_region = "+quoteLiteral(cfg.Region)))
	}
	stmts = append(stmts,
		statement{
			name:     "set s3_access_key_id",
			sql:      "SET s3_access_key_id = " + quoteLiteral(cfg.Credentials.AccessKey),
			redacted: "SET s3_access_key_id = " + redacted,
		},
		statement{
			name:     "set s3_secret_access_key",
			sql:      "SET s3_secret_access_key = " + quoteLiteral(cfg.Credentials.SecretKey),
			redacted: "SET s3_secret_access_key = " + redacted,
		},
		plain("set s3_use_ssl", fmt.Sprintf("SET s3_use_ssl = %t", cfg.UseSSL)),
	)
	return stmts
}

// copyStatement reads the CSV export at sourceURL with type inference and
// writes it to the partition, replacing any existing object.
func copyStatement(sourceURL string, dst domain.Partition) (statement, error) {
	if err := dst.Validate(); err != nil {
		return statement{}, err
	}
	format := strings.ToUpper(dst.Format)
	if format != "PARQUET" {
		return statement{}, fmt.Errorf("unsupported output format %q", dst.Format)
	}
	codec := strings.ToUpper(dst.Compression)
	switch codec {
	case "ZSTD", "SNAPPY", "GZIP", "UNCOMPRESSED":
	case "":
		codec = "ZSTD"
	default:
		return statement{}, fmt.Errorf("unsupported compression %q", dst.Compression)
	}

	sql := fmt.Sprintf(
		"COPY (SELECT * FROM read_csv_auto(%s)) TO %s (FORMAT %s, COMPRESSION %s)",
		quoteLiteral(sourceURL), quoteLiteral(dst.URI()), format, codec,
	)
	return plain("copy to "+dst.URI(), sql), nil
}
