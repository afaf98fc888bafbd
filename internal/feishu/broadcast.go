package feishu

import (
	"context"
	"fmt"
	"sync"
)

// BroadcastResult summarizes one fan-out. Errors holds one entry per failed
// destination, each prefixed with the destination id.
type BroadcastResult struct {
	SuccessCount int
	FailedCount  int
	Errors       []string
}

// Broadcast sends text to every chat the bot participates in. Sends run
// concurrently; one failed destination never stops the others.
func Broadcast(ctx context.Context, m Messenger, text string) BroadcastResult {
	chatIDs, err := m.ListChats(ctx)
	if err != nil {
		return BroadcastResult{Errors: []string{fmt.Sprintf("list chats: %v", err)}}
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		res BroadcastResult
	)
	for _, chatID := range chatIDs {
		wg.Add(1)
		go func(chatID string) {
			defer wg.Done()
			_, err := m.SendText(ctx, chatID, text)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.FailedCount++
				res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", chatID, err))
				return
			}
			res.SuccessCount++
		}(chatID)
	}
	wg.Wait()
	return res
}
