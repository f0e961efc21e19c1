// Package dispatch is the client for the external message dispatch store:
// a single wide table acting as an outbound queue that the carrier-facing
// network layer drains. The pipeline appends records, reads aggregate
// status counts back by correlation tag, and mutates pending records only
// for the explicit cancel/reschedule/edit operations.
package dispatch

import "fmt"

// Dispatch store status codes. The network layer writes whatever the
// carriers report; the pipeline only distinguishes pending, success, and
// everything-else-is-failure.
const (
	StatusQueued  = 100 // accepted, waiting for the network layer
	StatusRetry   = 104 // picked up once, waiting for a retry slot
	StatusSMSOk   = 6
	StatusLMSOk   = 1000
	StatusKakaoOk = 1800
)

var successCodes = map[int]bool{StatusSMSOk: true, StatusLMSOk: true, StatusKakaoOk: true}
var pendingCodes = map[int]bool{StatusQueued: true, StatusRetry: true}

// IsPending reports whether the network layer may still act on the record.
func IsPending(code int) bool { return pendingCodes[code] }

// IsSuccess reports whether the record reached its recipient.
func IsSuccess(code int) bool { return successCodes[code] }

// IsFail reports whether the record terminally failed: any code that is
// neither pending nor success.
func IsFail(code int) bool { return !IsPending(code) && !IsSuccess(code) }

var statusLabels = map[int]string{
	StatusSMSOk:   "SMS 성공",
	StatusLMSOk:   "LMS 성공",
	StatusKakaoOk: "카카오 성공",
	StatusQueued:  "발송 대기",
	StatusRetry:   "발송 대기",
	7:             "결번/서비스정지",
	8:             "단말기 꺼짐",
	2008:          "비가입자/결번",
	3000:          "메시지 형식 오류",
	3001:          "발신번호 오류",
	3002:          "수신번호 오류",
	3003:          "메시지 길이 초과",
	3004:          "스팸 차단",
	16:            "스팸 차단",
	23:            "식별코드 오류",
	2323:          "식별코드 오류",
	55:            "요금 부족",
	4000:          "전송 시간 초과",
	9999:          "기타 오류",
}

// Label returns the operator-facing description of a status code.
func Label(code int) string {
	if l, ok := statusLabels[code]; ok {
		return l
	}
	return fmt.Sprintf("코드 %d", code)
}
