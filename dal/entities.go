package dal

import (
	"time"
)

type ValueEntry struct {
	Key       string // weibo-blogger-ids
	Val       []byte // [6052726496,1669879400]
	UpdatedAt time.Time
}
