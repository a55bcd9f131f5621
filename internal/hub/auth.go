// ABOUTME: Challenge-response authentication against the hub.
// ABOUTME: Strict 3-step exchange producing the session token required on all calls.

package hub

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	authStatusSuccess    = "SUCCESS"
	questionTypeEmail    = "EMAIL"
	questionTypePassword = "PASSWORD"
)

// authBody is the auth/answer section of an authentication reply.
type authBody struct {
	Status   string `json:"status"`
	Token    string `json:"token"`
	Question *struct {
		Type string `json:"type"`
	} `json:"question"`
}

type authReply struct {
	Account struct {
		Auth   *authBody `json:"auth"`
		Answer *authBody `json:"answer"`
	} `json:"account"`
}

// authenticate runs the hub's mandatory 3-step exchange: initiate, answer
// with the email, answer with the password. The steps cannot be skipped or
// reordered; any deviation from the expected status/question sequence is
// fatal and leaves the token unset.
func (c *Client) authenticate(ctx context.Context) error {
	// Step 1: initiate. The hub must ask for the email.
	raw, err := c.call(ctx, map[string]any{
		"account": map[string]any{"auth": map[string]any{"params": []any{}}},
	})
	if err != nil {
		return fmt.Errorf("hub: auth initiation: %w", err)
	}
	body, err := parseAuthBody(raw, 1, func(r *authReply) *authBody { return r.Account.Auth })
	if err != nil {
		return err
	}
	if body.Status != authStatusSuccess {
		return &AuthError{Step: 1, Reason: fmt.Sprintf("unexpected status %q", body.Status)}
	}
	if body.Question == nil || body.Question.Type != questionTypeEmail {
		return &AuthError{Step: 1, Reason: fmt.Sprintf("expected %s question, got %q", questionTypeEmail, questionType(body))}
	}

	// Step 2: answer the email. The hub must ask for the password.
	raw, err = c.call(ctx, answerParams(c.cfg.Email))
	if err != nil {
		return fmt.Errorf("hub: auth email answer: %w", err)
	}
	body, err = parseAuthBody(raw, 2, func(r *authReply) *authBody { return r.Account.Answer })
	if err != nil {
		return err
	}
	if body.Question == nil || body.Question.Type != questionTypePassword {
		return &AuthError{Step: 2, Reason: fmt.Sprintf("expected %s question, got %q", questionTypePassword, questionType(body))}
	}

	// Step 3: answer the password and collect the session token.
	raw, err = c.call(ctx, answerParams(c.cfg.Password))
	if err != nil {
		return fmt.Errorf("hub: auth password answer: %w", err)
	}
	body, err = parseAuthBody(raw, 3, func(r *authReply) *authBody { return r.Account.Answer })
	if err != nil {
		return err
	}
	if body.Status != authStatusSuccess {
		return &AuthError{Step: 3, Reason: fmt.Sprintf("unexpected status %q", body.Status)}
	}
	if body.Token == "" {
		return &AuthError{Step: 3, Reason: "no token in reply"}
	}

	c.setToken(body.Token)
	return nil
}

func answerParams(data string) map[string]any {
	return map[string]any{
		"account": map[string]any{"answer": map[string]any{"data": data}},
	}
}

func parseAuthBody(raw json.RawMessage, step int, pick func(*authReply) *authBody) (*authBody, error) {
	var r authReply
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, &AuthError{Step: step, Reason: "malformed reply"}
	}
	body := pick(&r)
	if body == nil {
		return nil, &AuthError{Step: step, Reason: "missing account section"}
	}
	return body, nil
}

func questionType(body *authBody) string {
	if body.Question == nil {
		return ""
	}
	return body.Question.Type
}
