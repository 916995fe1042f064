package domain

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestRunReport_Finalize_SortAndUTC(t *testing.T) {
	r := RunReport{
		Root:       "/abs/photos",
		StartedAt:  time.Date(2021, 5, 1, 10, 0, 0, 0, time.FixedZone("X", 8*3600)),
		FinishedAt: time.Date(2021, 5, 1, 10, 0, 5, 0, time.FixedZone("X", 8*3600)),
		Status:     StatusOK,
		Failures: []FileFailure{
			{Path: "/abs/b.jpg", ErrorCode: ErrCodeDecodeFailed},
			{Path: "", ErrorCode: ErrCodeIOFailed}, // 合成项（无具体文件）
			{Path: "/abs/a.jpg", ErrorCode: ErrCodeDecodeFailed},
		},
	}

	r.Finalize()

	// path=="" 必须排最后；其余按字典序。
	if r.Failures[0].Path != "/abs/a.jpg" || r.Failures[1].Path != "/abs/b.jpg" || r.Failures[2].Path != "" {
		t.Fatalf("failures 排序不符合契约：%+v", r.Failures)
	}

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	// UTC 下 RFC3339 输出应带 'Z' 后缀。
	if !bytes.Contains(b, []byte(`"started_at":"2021-05-01T02:00:00Z"`)) {
		t.Fatalf("started_at 不是 UTC RFC3339：%s", string(b))
	}
}

func TestRunReport_Finalize_NilFailuresBecomesEmptyArray(t *testing.T) {
	r := RunReport{Status: StatusEmpty}
	r.Finalize()

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	// JSON 消费方期望 failures 恒为数组，而不是 null。
	if !bytes.Contains(b, []byte(`"failures":[]`)) {
		t.Fatalf("failures 应序列化为空数组：%s", string(b))
	}
}

func TestDate_CompareAndString(t *testing.T) {
	a := Date{Year: 2021, Month: 5, Day: 1}
	b := Date{Year: 2021, Month: 5, Day: 2}

	if a.Compare(b) != -1 || b.Compare(a) != 1 || a.Compare(a) != 0 {
		t.Fatal("Compare 返回值不符合 -1/0/+1 契约")
	}
	if a.String() != "2021-05-01" {
		t.Fatalf("期望 2021-05-01，实际=%q", a.String())
	}

	if (Date{Year: 2020, Month: 12, Day: 31}).Compare(a) != -1 {
		t.Fatal("跨年比较不正确")
	}
}

func TestHourKeyOf(t *testing.T) {
	k := HourKeyOf(time.Date(2021, 5, 1, 9, 59, 59, 0, time.UTC))
	if k != (HourKey{Year: 2021, Month: 5, Day: 1, Hour: 9}) {
		t.Fatalf("HourKey 不正确：%+v", k)
	}
}
