package transfer

type YoutubeImageSource struct {
	URL string `json:"url"`
}

type YoutubeImage struct {
	Source YoutubeImageSource `json:"source"`
}

type YoutubeAttachment struct {
	Image YoutubeImage `json:"image"`
}

type YoutubeCommunityPost struct {
	Content     string              `json:"content"`
	Attachments []YoutubeAttachment `json:"attachments,omitempty"`
}

type YoutubeChannelPostSnippet struct {
	ChannelID     string               `json:"channelId"`
	CommunityPost YoutubeCommunityPost `json:"communityPost"`
}

type YoutubeChannelPost struct {
	Snippet YoutubeChannelPostSnippet `json:"snippet"`
}

type YoutubeChannelPostResponse struct {
	ID string `json:"id"`
}

type YoutubeImageUploadResponse struct {
	URL string `json:"url"`
}

type GoogleErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
