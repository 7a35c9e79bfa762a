package database

import (
	"time"
)

// InsertGeneratedImage records a generated image for a story version.
func (db *DB) InsertGeneratedImage(img *GeneratedImage) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO generated_images (created_at, story_version_id, prompt, image_url, revised_prompt, model, size, quality)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		formatTime(time.Now().UTC()), img.StoryVersionID, img.Prompt,
		img.ImageURL, img.RevisedPrompt, img.Model, img.Size, img.Quality,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

const imageColumns = "id, created_at, story_version_id, prompt, image_url, revised_prompt, model, size, quality"

// ImagesForStory returns images for a story version, newest first.
func (db *DB) ImagesForStory(storyID int64) ([]GeneratedImage, error) {
	rows, err := db.conn.Query(
		`SELECT `+imageColumns+` FROM generated_images
		WHERE story_version_id = ? ORDER BY created_at DESC, id DESC`, storyID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []GeneratedImage
	for rows.Next() {
		var img GeneratedImage
		var createdAt string
		if err := rows.Scan(&img.ID, &createdAt, &img.StoryVersionID, &img.Prompt,
			&img.ImageURL, &img.RevisedPrompt, &img.Model, &img.Size, &img.Quality); err != nil {
			return nil, err
		}
		img.CreatedAt = parseTime(createdAt)
		images = append(images, img)
	}
	return images, rows.Err()
}

// ImageCount returns the number of generated images.
func (db *DB) ImageCount() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM generated_images").Scan(&count)
	return count, err
}
