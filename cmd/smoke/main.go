package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"study-evaluator/internal/client"
	"study-evaluator/internal/pairing"
	"study-evaluator/internal/schemas"
)

func main() {
	base := envOr("API_BASE_URL", "http://localhost:8000")
	token := envOr("API_TOKEN", "dev-secret-token")

	baseFlag := flag.String("base", base, "API base URL (e.g., http://localhost:8000)")
	tokenFlag := flag.String("token", token, "API token for admin endpoints")
	waitGrade := flag.Duration("wait-grade", 60*time.Second, "How long to poll for the submission grade")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	c := client.New(*baseFlag, *tokenFlag)

	// 1) Upload one matching pair and one lone plan
	plans := []pairing.Doc{
		{Name: "스터디계획서_광주_1반_스모크.txt", Data: []byte("목표: 4주간 백준 골드 문제 20개 풀이\n1주차: 그래프 탐색\n2주차: 최단 경로")},
		{Name: "스터디계획서_서울_2반_짝없음.txt", Data: []byte("짝이 없는 계획서")},
	}
	reports := []pairing.Doc{
		{Name: "스터디결과보고서_광주_1반_스모크.txt", Data: []byte("총 22문제 해결. 매주 2회 모임, 4명 전원 참여. 인증 사진 6장 첨부.")},
	}
	resp, err := c.Upload(ctx, plans, reports)
	if err != nil {
		fatalf("upload: %v", err)
	}
	fmt.Printf("✅ Uploaded: matched=%d unmatched_plans=%v unmatched_reports=%v\n",
		resp.Summary.MatchedCount, resp.Summary.UnmatchedPlans, resp.Summary.UnmatchedReports)
	if resp.Summary.MatchedCount != 1 || len(resp.Summary.UnmatchedPlans) != 1 {
		fatalf("unexpected pairing summary: %+v", resp.Summary)
	}
	var resultID int64
	for _, item := range resp.Results {
		fmt.Printf("   %s: %s %s\n", item.Filename, item.Status, item.Error)
		if item.Status == schemas.StatusSuccess {
			resultID = item.ResultID
		}
	}

	// 2) List and fetch the stored result
	rows, err := c.ListResults(ctx, schemas.ResultFilter{Campus: "광주", Q: "스모크"})
	if err != nil {
		fatalf("list results: %v", err)
	}
	fmt.Printf("✅ Listed %d result(s) for 광주/스모크\n", len(rows))
	if resultID != 0 {
		detail, err := c.GetResult(ctx, resultID)
		if err != nil {
			fatalf("get result %d: %v", resultID, err)
		}
		fmt.Printf("✅ Result %d: %s (%d bytes of analysis)\n", resultID, detail.Filename, len(detail.AnalysisData))

		if rr, err := c.Reevaluate(ctx, resultID); err != nil {
			fmt.Printf("ℹ️  Reevaluate skipped: %v\n", err)
		} else {
			fmt.Printf("✅ Reevaluated: %s %s\n", rr.Status, rr.Error)
		}
	}
	if _, err := c.GetResult(ctx, 1<<40); !errors.Is(err, client.ErrNotFound) {
		fatalf("expected not found for a missing result, got %v", err)
	}

	opts, err := c.FilterOptions(ctx)
	if err != nil {
		fatalf("filter options: %v", err)
	}
	fmt.Printf("✅ Filter options: campuses=%v classes=%v\n", opts.Campuses, opts.ClassNames)

	// 3) Submit a typed plan and poll until the worker grades it
	sub, err := c.SubmitPlan(ctx, schemas.PlanRequest{
		Title:       "알고리즘 마스터",
		Author:      "스모크",
		Campus:      "광주",
		MemberCount: 4,
		Plan:        "1주차: 그래프 탐색\n2주차: 최단 경로\n3주차: DP\n4주차: 모의 코딩테스트",
	})
	if err != nil {
		fatalf("submit plan: %v", err)
	}
	fmt.Printf("✅ Submitted plan %s (%s)\n", sub.ID, sub.Status)

	deadline := time.Now().Add(*waitGrade)
	for {
		got, err := c.GetSubmission(ctx, "plan", sub.ID)
		if err != nil {
			fatalf("get submission: %v", err)
		}
		if got.Status != sub.Status {
			fmt.Printf("✅ Submission %s: %s total=%v %s\n", got.ID, got.Status, deref(got.Total), got.Error)
			break
		}
		if time.Now().After(deadline) {
			fmt.Printf("ℹ️  Submission still %s (is the worker running?)\n", got.Status)
			break
		}
		time.Sleep(3 * time.Second)
	}

	fmt.Println("🎉 Smoke run OK.")
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func deref(f *float64) any {
	if f == nil {
		return "-"
	}
	return *f
}

func fatalf(format string, args ...any) {
	fmt.Printf("❌ "+format+"\n", args...)
	os.Exit(1)
}
