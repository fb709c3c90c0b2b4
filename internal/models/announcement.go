package models

import "time"

type Announcement struct {
	ID        int64               `json:"id"`
	Title     string              `json:"title"`
	Content   string              `json:"content"`
	CreatedAt time.Time           `json:"created_at"`
	Author    *AnnouncementAuthor `json:"author,omitempty"`
}

type AnnouncementAuthor struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email,omitempty"`
	ProfileImage string `json:"profile_image"`
}
