package commands

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func testParser() *Parser {
	return &Parser{Mention: "@小z", Location: time.UTC}
}

func TestParse_Handshake(t *testing.T) {
	cmd, err := testParser().Parse("提醒功能")
	if err != nil {
		t.Fatalf("Parse err = %v", err)
	}
	if _, ok := cmd.(Handshake); !ok {
		t.Errorf("Parse = %T, want Handshake", cmd)
	}
}

func TestParse_List(t *testing.T) {
	cmd, err := testParser().Parse(" 查看提醒 ")
	if err != nil {
		t.Fatalf("Parse err = %v", err)
	}
	if _, ok := cmd.(List); !ok {
		t.Errorf("Parse = %T, want List", cmd)
	}
}

func TestParse_Add(t *testing.T) {
	cmd, err := testParser().Parse("提醒内容：开会 提醒时间：2099/01/01 10:00")
	if err != nil {
		t.Fatalf("Parse err = %v", err)
	}
	add, ok := cmd.(Add)
	if !ok {
		t.Fatalf("Parse = %T, want Add", cmd)
	}
	if add.Content != "开会" {
		t.Errorf("Content = %q", add.Content)
	}
	if add.TimeStr != "2099/01/01 10:00" {
		t.Errorf("TimeStr = %q", add.TimeStr)
	}
	want := time.Date(2099, 1, 1, 10, 0, 0, 0, time.UTC)
	if !add.DueAt.Equal(want) {
		t.Errorf("DueAt = %v, want %v", add.DueAt, want)
	}
}

func TestParse_AddMalformed(t *testing.T) {
	tests := []string{
		"提醒内容：开会",                           // missing time
		"提醒内容：开会 提醒时间：明天上午",               // non-numeric time
		"提醒内容：开会 提醒时间：2099-01-01 10:00",   // wrong separator
		"提醒内容：开会 提醒时间：2099/01/01 10:00 多余", // trailing garbage
	}
	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			_, err := testParser().Parse(text)
			var usage *UsageError
			if !errors.As(err, &usage) {
				t.Fatalf("Parse(%q) err = %v, want *UsageError", text, err)
			}
			if !strings.Contains(usage.Guidance, "格式") {
				t.Errorf("guidance %q does not mention the format", usage.Guidance)
			}
		})
	}
}

func TestParse_Delete(t *testing.T) {
	cmd, err := testParser().Parse("删除提醒 开会")
	if err != nil {
		t.Fatalf("Parse err = %v", err)
	}
	del, ok := cmd.(Delete)
	if !ok {
		t.Fatalf("Parse = %T, want Delete", cmd)
	}
	if del.Keyword != "开会" {
		t.Errorf("Keyword = %q", del.Keyword)
	}
}

func TestParse_DeleteWithoutKeyword(t *testing.T) {
	_, err := testParser().Parse("删除提醒")
	var usage *UsageError
	if !errors.As(err, &usage) {
		t.Fatalf("err = %v, want *UsageError", err)
	}
	if !strings.Contains(usage.Guidance, "关键字") {
		t.Errorf("guidance = %q", usage.Guidance)
	}
}

func TestParse_Modify(t *testing.T) {
	cmd, err := testParser().Parse("修改提醒 开会 新提醒内容：开周会 新提醒时间：2099/02/03 09:30")
	if err != nil {
		t.Fatalf("Parse err = %v", err)
	}
	mod, ok := cmd.(Modify)
	if !ok {
		t.Fatalf("Parse = %T, want Modify", cmd)
	}
	if mod.Keyword != "开会" || mod.Content != "开周会" {
		t.Errorf("Modify = %+v", mod)
	}
	want := time.Date(2099, 2, 3, 9, 30, 0, 0, time.UTC)
	if !mod.DueAt.Equal(want) {
		t.Errorf("DueAt = %v, want %v", mod.DueAt, want)
	}
}

func TestParse_ModifyMalformed(t *testing.T) {
	_, err := testParser().Parse("修改提醒 开会 新提醒内容：开周会")
	var usage *UsageError
	if !errors.As(err, &usage) {
		t.Fatalf("err = %v, want *UsageError", err)
	}
	if !strings.Contains(usage.Guidance, "@小z") {
		t.Errorf("guidance %q should show the full command shape", usage.Guidance)
	}
}

func TestParse_FreeDialogue(t *testing.T) {
	tests := []string{
		"今天天气怎么样",
		"帮我写首诗",
		"", // empty after mention strip
	}
	for _, text := range tests {
		_, err := testParser().Parse(text)
		if !errors.Is(err, ErrNotACommand) {
			t.Errorf("Parse(%q) err = %v, want ErrNotACommand", text, err)
		}
	}
}
