package model

import "time"

// Picture is an image attached to a catalog item. Data is not serialized;
// clients fetch it from the picture URL.
type Picture struct {
	UUID      string    `json:"uuid"`
	ItemUUID  string    `json:"item"`
	MIME      string    `json:"mime"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	CreatedAt time.Time `json:"created_at"`
	Data      []byte    `json:"-"`
}
