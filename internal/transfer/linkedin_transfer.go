package transfer

// PublishResult is the outcome of a single publish call. Error is set when Success is false.
type PublishResult struct {
	Success bool   `json:"success"`
	PostID  string `json:"postId,omitempty"`
	Error   string `json:"error,omitempty"`
}

type LinkedinShareCommentary struct {
	Text string `json:"text"`
}

type LinkedinShareContent struct {
	ShareCommentary    LinkedinShareCommentary `json:"shareCommentary"`
	ShareMediaCategory string                  `json:"shareMediaCategory"`
}

type LinkedinSpecificContent struct {
	ShareContent LinkedinShareContent `json:"com.linkedin.ugc.ShareContent"`
}

type LinkedinVisibility struct {
	MemberNetworkVisibility string `json:"com.linkedin.ugc.MemberNetworkVisibility"`
}

type LinkedinUGCPost struct {
	Author          string                  `json:"author"`
	LifecycleState  string                  `json:"lifecycleState"`
	SpecificContent LinkedinSpecificContent `json:"specificContent"`
	Visibility      LinkedinVisibility      `json:"visibility"`
}

type LinkedinUGCResponse struct {
	ID string `json:"id"`
}

type LinkedinErrorResponse struct {
	Message          string `json:"message"`
	Status           int    `json:"status"`
	ServiceErrorCode int    `json:"serviceErrorCode"`
}

type LinkedinUserInfo struct {
	Sub     string `json:"sub"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}
