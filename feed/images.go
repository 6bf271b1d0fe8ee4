package feed

import (
	"weibo_relay/client"
	"weibo_relay/dto"
)

// ProxyProfileImages returns a copy of profile whose image URLs go through cl.
func ProxyProfileImages(profile *dto.Profile, cl client.IClient) *dto.Profile {
	if profile == nil {
		return nil
	}
	res := *profile
	res.ProfileImageUrl = cl.ImageURL(res.ProfileImageUrl)
	res.AvatarHd = cl.ImageURL(res.AvatarHd)
	res.CoverImagePhone = cl.ImageURL(res.CoverImagePhone)
	return &res
}

// ProxyCardImages returns copies of cards with every post image, and images inside post text, going through cl.
// The input is left untouched so the cache keeps raw upstream URLs.
func ProxyCardImages(cards []dto.Card, cl client.IClient) []dto.Card {
	res := make([]dto.Card, 0, len(cards))
	for _, card := range cards {
		if card.Mblog != nil {
			card.Mblog = proxyPostImages(card.Mblog, cl)
		}
		res = append(res, card)
	}
	return res
}

func proxyPostImages(post *dto.Post, cl client.IClient) *dto.Post {
	res := *post
	res.Text = RewriteImages(res.Text, cl)
	res.User = ProxyProfileImages(res.User, cl)
	res.ThumbnailPic = cl.ImageURL(res.ThumbnailPic)
	res.OriginalPic = cl.ImageURL(res.OriginalPic)
	if res.Pics != nil {
		res.Pics = make([]dto.Picture, len(post.Pics))
		for i, pic := range post.Pics {
			pic.Url = cl.ImageURL(pic.Url)
			if pic.Large != nil {
				large := *pic.Large
				large.Url = cl.ImageURL(large.Url)
				pic.Large = &large
			}
			res.Pics[i] = pic
		}
	}
	return &res
}
