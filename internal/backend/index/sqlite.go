package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

type SQLiteIndex struct {
	db               *sql.DB
	connectionString string
}

func NewSQLiteIndex(connectionString string) (IndexService, error) {
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}
	// every connection to ":memory:" is its own database
	db.SetMaxOpenConns(1)

	return &SQLiteIndex{
		db:               db,
		connectionString: connectionString,
	}, nil
}

func (s *SQLiteIndex) CreateIndex(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS images`); err != nil {
		return fmt.Errorf("failed to drop images table: %w", err)
	}
	_, err := s.db.ExecContext(ctx, `CREATE TABLE images (
		seq  INTEGER PRIMARY KEY AUTOINCREMENT,
		id   TEXT NOT NULL,
		src  TEXT NOT NULL,
		tags TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT ''
	)`)
	if err != nil {
		return fmt.Errorf("failed to create images table: %w", err)
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteIndex) AppendImages(ctx context.Context, images []Image) (err error) {
	if len(images) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO images (id, src, tags, name) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, img := range images {
		tags, err := json.Marshal(img.Tags)
		if err != nil {
			return fmt.Errorf("failed to encode tags of image %s: %w", img.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, img.ID, img.Src, string(tags), img.Name); err != nil {
			return fmt.Errorf("failed to insert image %s: %w", img.ID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteIndex) GetImages(ctx context.Context) ([]Image, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, src, tags, name FROM images ORDER BY seq")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	images := []Image{}
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

func (s *SQLiteIndex) GetImageByID(ctx context.Context, id string) (*Image, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, src, tags, name FROM images WHERE id = ? ORDER BY seq LIMIT 1", id)
	img, err := scanImage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &img, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanImage(row scanner) (Image, error) {
	var img Image
	var tags string
	if err := row.Scan(&img.ID, &img.Src, &tags, &img.Name); err != nil {
		return Image{}, err
	}
	if err := json.Unmarshal([]byte(tags), &img.Tags); err != nil {
		return Image{}, fmt.Errorf("failed to decode tags of image %s: %w", img.ID, err)
	}
	return img, nil
}
