package store

import (
	"database/sql"
	"time"
)

// WalkSample is one tick of locomotion diagnostics within a session.
type WalkSample struct {
	Seq                int       `json:"seq"`
	RecordedAt         time.Time `json:"recorded_at"`
	SmoothedHorizontal float64   `json:"smoothed_horizontal"`
	SmoothedVertical   float64   `json:"smoothed_vertical"`
	DirectionStability float64   `json:"direction_stability"`
	VerticalPattern    float64   `json:"vertical_pattern"`
	HorizontalPattern  float64   `json:"horizontal_pattern"`
	AvgSpeed           float64   `json:"avg_speed"`
	IsWalking          bool      `json:"is_walking"`
	RawMoveX           float64   `json:"raw_move_x"`
	RawMoveY           float64   `json:"raw_move_y"`
	RawMoveZ           float64   `json:"raw_move_z"`
}

// EncumbranceSample is one tick of hand diagnostics within a session.
type EncumbranceSample struct {
	Seq         int       `json:"seq"`
	RecordedAt  time.Time `json:"recorded_at"`
	CurlIndex   float64   `json:"curl_index"`
	CurlMiddle  float64   `json:"curl_middle"`
	CurlRing    float64   `json:"curl_ring"`
	CurlPinky   float64   `json:"curl_pinky"`
	AvgGripCurl float64   `json:"avg_grip_curl"`
	PinchIndex  float64   `json:"pinch_index"`
	PinchMiddle float64   `json:"pinch_middle"`
	PinchRing   float64   `json:"pinch_ring"`
	PinchPinky  float64   `json:"pinch_pinky"`
	AvgPinch    float64   `json:"avg_pinch"`
	WristX      float64   `json:"wrist_x"`
	WristY      float64   `json:"wrist_y"`
	WristZ      float64   `json:"wrist_z"`
	DeltaX      float64   `json:"delta_x"`
	DeltaY      float64   `json:"delta_y"`
	DeltaZ      float64   `json:"delta_z"`
	WristStable bool      `json:"wrist_stable"`

	// WristStableTime is the wrist stability counter in seconds.
	WristStableTime float64 `json:"wrist_stable_time"`
	GripHeld        bool    `json:"grip_held"`
	PinchHeld       bool    `json:"pinch_held"`
	Encumbered      bool    `json:"encumbered"`
}

// SampleRepository stores the per-tick rows of sessions.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Append inserts walk and encumbrance rows for a session in a single transaction.
func (r *SampleRepository) Append(sessionID string, walk []WalkSample, enc []EncumbranceSample) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	walkStmt, err := tx.Prepare(`INSERT INTO walk_samples (
		session_id, seq, recorded_at, smoothed_horizontal, smoothed_vertical, direction_stability,
		vertical_pattern, horizontal_pattern, avg_speed, is_walking, raw_move_x, raw_move_y, raw_move_z
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer walkStmt.Close()

	for _, w := range walk {
		_, err := walkStmt.Exec(sessionID, w.Seq, w.RecordedAt,
			w.SmoothedHorizontal, w.SmoothedVertical, w.DirectionStability,
			w.VerticalPattern, w.HorizontalPattern, w.AvgSpeed, w.IsWalking,
			w.RawMoveX, w.RawMoveY, w.RawMoveZ)
		if err != nil {
			return err
		}
	}

	encStmt, err := tx.Prepare(`INSERT INTO encumbrance_samples (
		session_id, seq, recorded_at, curl_index, curl_middle, curl_ring, curl_pinky, avg_grip_curl,
		pinch_index, pinch_middle, pinch_ring, pinch_pinky, avg_pinch,
		wrist_x, wrist_y, wrist_z, delta_x, delta_y, delta_z,
		wrist_stable, wrist_stable_time, grip_held, pinch_held, encumbered
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer encStmt.Close()

	for _, e := range enc {
		_, err := encStmt.Exec(sessionID, e.Seq, e.RecordedAt,
			e.CurlIndex, e.CurlMiddle, e.CurlRing, e.CurlPinky, e.AvgGripCurl,
			e.PinchIndex, e.PinchMiddle, e.PinchRing, e.PinchPinky, e.AvgPinch,
			e.WristX, e.WristY, e.WristZ, e.DeltaX, e.DeltaY, e.DeltaZ,
			e.WristStable, e.WristStableTime, e.GripHeld, e.PinchHeld, e.Encumbered)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// WalkSamples retrieves the walk rows of a session in tick order.
func (r *SampleRepository) WalkSamples(sessionID string) ([]WalkSample, error) {
	rows, err := r.db.Query(
		`SELECT seq, recorded_at, smoothed_horizontal, smoothed_vertical, direction_stability,
		        vertical_pattern, horizontal_pattern, avg_speed, is_walking, raw_move_x, raw_move_y, raw_move_z
		 FROM walk_samples
		 WHERE session_id = ?
		 ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []WalkSample
	for rows.Next() {
		var w WalkSample
		err := rows.Scan(&w.Seq, &w.RecordedAt, &w.SmoothedHorizontal, &w.SmoothedVertical, &w.DirectionStability,
			&w.VerticalPattern, &w.HorizontalPattern, &w.AvgSpeed, &w.IsWalking, &w.RawMoveX, &w.RawMoveY, &w.RawMoveZ)
		if err != nil {
			return nil, err
		}
		samples = append(samples, w)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// EncumbranceSamples retrieves the encumbrance rows of a session in tick order.
func (r *SampleRepository) EncumbranceSamples(sessionID string) ([]EncumbranceSample, error) {
	rows, err := r.db.Query(
		`SELECT seq, recorded_at, curl_index, curl_middle, curl_ring, curl_pinky, avg_grip_curl,
		        pinch_index, pinch_middle, pinch_ring, pinch_pinky, avg_pinch,
		        wrist_x, wrist_y, wrist_z, delta_x, delta_y, delta_z,
		        wrist_stable, wrist_stable_time, grip_held, pinch_held, encumbered
		 FROM encumbrance_samples
		 WHERE session_id = ?
		 ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []EncumbranceSample
	for rows.Next() {
		var e EncumbranceSample
		err := rows.Scan(&e.Seq, &e.RecordedAt,
			&e.CurlIndex, &e.CurlMiddle, &e.CurlRing, &e.CurlPinky, &e.AvgGripCurl,
			&e.PinchIndex, &e.PinchMiddle, &e.PinchRing, &e.PinchPinky, &e.AvgPinch,
			&e.WristX, &e.WristY, &e.WristZ, &e.DeltaX, &e.DeltaY, &e.DeltaZ,
			&e.WristStable, &e.WristStableTime, &e.GripHeld, &e.PinchHeld, &e.Encumbered)
		if err != nil {
			return nil, err
		}
		samples = append(samples, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}
