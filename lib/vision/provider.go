// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/sagielster/DeviceLinkAssistant/lib/netutil"
)

// apiCall is one JSON POST to a vision API.
type apiCall struct {
	httpClient *http.Client
	endpoint   string
	headers    map[string]string
	prefix     string
}

// replyBody is a read response: status plus bounded body.
type replyBody struct {
	statusCode int
	body       []byte
}

// post marshals wireRequest and sends it. Transport failures wrap
// ErrNetworkFailed. The body is read whatever the status: both APIs
// return error envelopes that callers classify themselves.
func (call apiCall) post(ctx context.Context, wireRequest any) (replyBody, error) {
	payload, err := json.Marshal(wireRequest)
	if err != nil {
		return replyBody{}, fmt.Errorf("%s: marshaling request: %w", call.prefix, err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, call.endpoint, bytes.NewReader(payload))
	if err != nil {
		return replyBody{}, fmt.Errorf("%s: creating request: %w", call.prefix, err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	for name, value := range call.headers {
		httpRequest.Header.Set(name, value)
	}

	httpResponse, err := call.httpClient.Do(httpRequest)
	if err != nil {
		if ctx.Err() != nil {
			return replyBody{}, fmt.Errorf("%s: %w", call.prefix, ctx.Err())
		}
		return replyBody{}, fmt.Errorf("%s: %w: %v", call.prefix, ErrNetworkFailed, err)
	}
	defer httpResponse.Body.Close()

	body, err := netutil.ReadResponse(httpResponse.Body)
	if err != nil {
		return replyBody{}, fmt.Errorf("%s: %w: %v", call.prefix, ErrNetworkFailed, err)
	}
	return replyBody{statusCode: httpResponse.StatusCode, body: body}, nil
}

func (reply replyBody) ok() bool {
	return reply.statusCode >= 200 && reply.statusCode < 300
}

// flexibleString decodes a JSON string, number, or null into text.
// OpenAI sends error.code as either a string or null; Gemini sends a
// number.
type flexibleString string

func (value *flexibleString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*value = ""
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*value = flexibleString(text)
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return err
	}
	if integer, err := number.Int64(); err == nil {
		*value = flexibleString(strconv.FormatInt(integer, 10))
		return nil
	}
	*value = flexibleString(number.String())
	return nil
}
