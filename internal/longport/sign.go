package longport

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const signedHeaders = "authorization;x-api-key;x-timestamp"

type signInput struct {
	Method      string
	Path        string
	RawQuery    string
	AccessToken string
	AppKey      string
	Timestamp   string
	Body        []byte
}

// sign 生成 X-Api-Signature 头。
// 规范请求: METHOD|PATH|QUERY|headers|signed_headers|sha1(body)，再以 app secret 做 HMAC-SHA256。
func sign(in signInput, secret string) string {
	canonical := fmt.Sprintf("%s|%s|%s|authorization:%s\nx-api-key:%s\nx-timestamp:%s\n|%s|",
		strings.ToUpper(in.Method), in.Path, in.RawQuery,
		in.AccessToken, in.AppKey, in.Timestamp, signedHeaders)
	if len(in.Body) > 0 {
		bodySum := sha1.Sum(in.Body)
		canonical += hex.EncodeToString(bodySum[:])
	}

	reqSum := sha1.Sum([]byte(canonical))
	toSign := "HMAC-SHA256|" + hex.EncodeToString(reqSum[:])

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(toSign))

	return "HMAC-SHA256 SignedHeaders=" + signedHeaders + ", Signature=" + hex.EncodeToString(mac.Sum(nil))
}
