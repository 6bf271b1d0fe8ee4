package dto

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Layout of created_at on upstream posts, e.g. "Sat Oct 12 20:01:22 +0800 2024"
const CreatedAtLayout = "Mon Jan 02 15:04:05 -0700 2006"

type AuthorId int64

func (id AuthorId) String() string {
	return strconv.FormatInt(int64(id), 10)
}

func ParseAuthorId(str string) (AuthorId, error) {
	val, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid author id '%s': %w", str, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("invalid author id '%s': must be positive", str)
	}
	return AuthorId(val), nil
}

// FlexString decodes from a JSON string or number. Upstream sends abbreviated counts ("1.2万", "100万+") as strings,
// for followers as well as for post reposts, comments and likes.
type FlexString string

func (x *FlexString) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	str, err := getFlexString(raw)
	if err != nil {
		return err
	}
	*x = FlexString(str)
	return nil
}

// FlexInt decodes from a JSON number, a numeric string or null.
type FlexInt int64

func (x *FlexInt) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	str, err := getFlexString(raw)
	if err != nil {
		return err
	}
	if str == "" {
		*x = 0
		return nil
	}
	val, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return fmt.Errorf("value must be numeric, got '%s'", str)
	}
	*x = FlexInt(val)
	return nil
}

func getFlexString(raw any) (string, error) {
	if raw == nil {
		return "", nil
	}
	if str, ok := raw.(string); ok {
		return str, nil
	} else if num, ok := raw.(float64); ok {
		return strconv.FormatFloat(num, 'f', -1, 64), nil
	}
	return "", fmt.Errorf("value must be a string or a number")
}

type Profile struct {
	Id              int64      `json:"id"`
	ScreenName      string     `json:"screen_name"`
	ProfileImageUrl string     `json:"profile_image_url"`
	AvatarHd        string     `json:"avatar_hd"`
	Description     string     `json:"description"`
	FollowCount     FlexString `json:"follow_count"`
	FollowersCount  FlexString `json:"followers_count"`
	StatusesCount   FlexString `json:"statuses_count"`
	Verified        bool       `json:"verified"`
	VerifiedType    int        `json:"verified_type"`
	Gender          string     `json:"gender"`
	Mbrank          int        `json:"mbrank"`
	CoverImagePhone string     `json:"cover_image_phone,omitempty"`
}

type PictureGeo struct {
	Width   FlexInt `json:"width"`
	Height  FlexInt `json:"height"`
	Cropped bool    `json:"croped"`
}

type PictureVariant struct {
	Size string     `json:"size"`
	Url  string     `json:"url"`
	Geo  PictureGeo `json:"geo"`
}

type Picture struct {
	Pid   string          `json:"pid"`
	Url   string          `json:"url"`
	Size  string          `json:"size"`
	Geo   PictureGeo      `json:"geo"`
	Large *PictureVariant `json:"large,omitempty"`
}

type PostTitle struct {
	Text      string `json:"text"`
	BaseColor int    `json:"base_color"`
}

type Post struct {
	Id             string     `json:"id"`
	Mid            string     `json:"mid"`
	CreatedAt      string     `json:"created_at"`
	Text           string     `json:"text"`
	Source         string     `json:"source"`
	User           *Profile   `json:"user,omitempty"`
	RepostsCount   FlexString `json:"reposts_count"`
	CommentsCount  FlexString `json:"comments_count"`
	AttitudesCount FlexString `json:"attitudes_count"`
	PicIds         []string   `json:"pic_ids,omitempty"`
	Pics           []Picture  `json:"pics,omitempty"`
	ThumbnailPic   string     `json:"thumbnail_pic,omitempty"`
	OriginalPic    string     `json:"original_pic,omitempty"`
	IsLongText     bool       `json:"isLongText"`
	RegionName     string     `json:"region_name,omitempty"`
	Title          *PostTitle `json:"title,omitempty"`
	Bid            string     `json:"bid"`
}

func (p *Post) CreatedTime() (time.Time, error) {
	return time.Parse(CreatedAtLayout, p.CreatedAt)
}

// Card is one timeline entry. Cards that are not posts (e.g. card_type 11 groups) have no mblog.
type Card struct {
	CardType int    `json:"card_type"`
	Mblog    *Post  `json:"mblog,omitempty"`
	ItemId   string `json:"itemid"`
	Scheme   string `json:"scheme"`
}

type ProfileResponse struct {
	Ok   int         `json:"ok"`
	Msg  string      `json:"msg,omitempty"`
	Data ProfileData `json:"data"`
}

type ProfileData struct {
	UserInfo *Profile       `json:"userInfo"`
	TabsInfo json.RawMessage `json:"tabsInfo,omitempty"`
}

type TimelineResponse struct {
	Ok   int          `json:"ok"`
	Msg  string       `json:"msg,omitempty"`
	Data TimelineData `json:"data"`
}

type TimelineData struct {
	CardlistInfo CardlistInfo `json:"cardlistInfo"`
	Cards        []Card       `json:"cards"`
}

type CardlistInfo struct {
	ContainerId string  `json:"containerid"`
	Total       int     `json:"total"`
	Page        FlexInt `json:"page"`
}
