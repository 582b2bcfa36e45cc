package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/coldwatch/coldwatch-server/internal/models"
)

// ========== Reading Methods ==========

// InsertReading appends a reading and refreshes the sensor's last-reading
// snapshot. Call inside a transaction when ingesting a batch.
func (s *PostgresStore) InsertReading(ctx context.Context, reading *models.Reading) error {
	query := `INSERT INTO readings (ts, sensor_id, value) VALUES ($1, $2, $3)`

	if _, err := s.getDB().ExecContext(ctx, query,
		reading.Timestamp, reading.SensorID, reading.Value); err != nil {
		return mapError(err)
	}

	// Only advance the snapshot, out-of-order backfills must not regress it.
	update := `
        UPDATE sensors
        SET last_reading_at = $2, last_reading_value = $3, updated_at = $4
        WHERE id = $1 AND (last_reading_at IS NULL OR last_reading_at <= $2)`

	_, err := s.getDB().ExecContext(ctx, update,
		reading.SensorID, reading.Timestamp, reading.Value, time.Now())
	return mapError(err)
}

// ListReadings returns readings for a sensor within [from, to], newest first
func (s *PostgresStore) ListReadings(ctx context.Context, sensorID uuid.UUID, from, to time.Time, limit int) ([]*models.Reading, error) {
	query := `
        SELECT ts, sensor_id, value
        FROM readings
        WHERE sensor_id = $1 AND ts >= $2 AND ts <= $3
        ORDER BY ts DESC
        LIMIT $4`

	rows, err := s.getDB().QueryContext(ctx, query, sensorID, from, to, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var readings []*models.Reading
	for rows.Next() {
		reading := &models.Reading{}
		if err := rows.Scan(&reading.Timestamp, &reading.SensorID, &reading.Value); err != nil {
			return nil, err
		}
		readings = append(readings, reading)
	}

	return readings, rows.Err()
}

// GetReadingStats aggregates a sensor's readings within [from, to]
func (s *PostgresStore) GetReadingStats(ctx context.Context, sensorID uuid.UUID, from, to time.Time) (*models.ReadingStats, error) {
	query := `
        SELECT COUNT(*), COALESCE(MIN(value), 0), COALESCE(MAX(value), 0), COALESCE(AVG(value), 0)
        FROM readings
        WHERE sensor_id = $1 AND ts >= $2 AND ts <= $3`

	stats := &models.ReadingStats{}
	err := s.getDB().QueryRowContext(ctx, query, sensorID, from, to).Scan(
		&stats.Count, &stats.Min, &stats.Max, &stats.Avg,
	)
	if err != nil {
		return nil, mapError(err)
	}

	return stats, nil
}
