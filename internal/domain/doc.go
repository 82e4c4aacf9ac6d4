// Package domain models one scheduled ingestion of USGS earthquake events into
// the raw layer of the data lake.
//
// # Data Source
//
// Events come from the USGS FDSN event web service:
//
//	https://earthquake.usgs.gov/fdsnws/event/1/query?format=csv&starttime=2025-06-01&endtime=2025-06-02
//
// The CSV header is stable in practice (time, latitude, longitude, depth, mag,
// magType, nst, gap, dmin, rms, net, id, updated, place, type, horizontalError,
// depthError, magError, magNst, status, locationSource, magSource) but the job
// never depends on it: columns pass through with inferred types.
//
// # Scheduling Conventions
//
// The job follows the orchestrator's data-interval model. A daily schedule at
// 05:00 UTC produces intervals [D 05:00, D+1 05:00) whose logical run date is D.
// The query window is the interval truncated to UTC calendar dates, so the run
// for D asks the API for starttime=D and endtime=D+1.
//
// Dates are always computed in UTC. Host-local time zones and daylight-saving
// transitions never shift a window or a partition.
//
// # Partition Layout
//
//	s3://<bucket>/<layer>/<source>/<run-date>/part-000.parquet
//	s3://prod/raw/earthquake/2025-06-01/part-000.parquet
//
// The path depends only on the run date, never on the window, so reruns and
// backfills overwrite exactly one object.
package domain
