package transfer

type LinkedinServiceRelationship struct {
	RelationshipType string `json:"relationshipType"`
	Identifier       string `json:"identifier"`
}

type LinkedinRegisterUpload struct {
	Recipes              []string                      `json:"recipes"`
	Owner                string                        `json:"owner"`
	ServiceRelationships []LinkedinServiceRelationship `json:"serviceRelationships"`
}

type LinkedinRegisterUploadRequest struct {
	RegisterUploadRequest LinkedinRegisterUpload `json:"registerUploadRequest"`
}

type LinkedinRegisterUploadResponse struct {
	Value struct {
		Asset           string `json:"asset"`
		UploadMechanism struct {
			HTTPRequest struct {
				UploadURL string `json:"uploadUrl"`
			} `json:"com.linkedin.digitalmedia.uploadMechanism.MediaUploadHttpRequest"`
		} `json:"uploadMechanism"`
	} `json:"value"`
}

type LinkedinText struct {
	Text string `json:"text"`
}

type LinkedinMedia struct {
	Status string        `json:"status"`
	Media  string        `json:"media"`
	Title  *LinkedinText `json:"title,omitempty"`
}

type LinkedinShareContent struct {
	ShareCommentary    LinkedinText    `json:"shareCommentary"`
	ShareMediaCategory string          `json:"shareMediaCategory"`
	Title              *LinkedinText   `json:"title,omitempty"`
	Media              []LinkedinMedia `json:"media,omitempty"`
}

type LinkedinSpecificContent struct {
	ShareContent LinkedinShareContent `json:"com.linkedin.ugc.ShareContent"`
}

type LinkedinVisibility struct {
	MemberNetworkVisibility string `json:"com.linkedin.ugc.MemberNetworkVisibility"`
}

type LinkedinUgcPost struct {
	Author          string                  `json:"author"`
	LifecycleState  string                  `json:"lifecycleState"`
	SpecificContent LinkedinSpecificContent `json:"specificContent"`
	Visibility      LinkedinVisibility      `json:"visibility"`
}

type LinkedinUgcPostResponse struct {
	ID string `json:"id"`
}

type LinkedinSharePatch struct {
	ShareCommentary LinkedinText  `json:"shareCommentary"`
	Title           *LinkedinText `json:"title,omitempty"`
}

type LinkedinPatchRequest struct {
	Patch struct {
		Set struct {
			SpecificContent struct {
				ShareContent LinkedinSharePatch `json:"com.linkedin.ugc.ShareContent"`
			} `json:"specificContent"`
		} `json:"$set"`
	} `json:"patch"`
}

type LinkedinErrorResponse struct {
	Message     string `json:"message"`
	ServiceCode int    `json:"serviceErrorCode"`
	Status      int    `json:"status"`
}

type LinkedinUserInfo struct {
	Sub     string `json:"sub"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}
