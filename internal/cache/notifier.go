// notifier.go — сигнал о завершённом кэшировании.
// Заинтересованные слушатели (например, бейдж "скачано" в UI)
// обновляют производное состояние по событию, без опроса диска.
package cache

import "sync"

// subscriberBuffer — ёмкость канала подписчика. Медленный подписчик
// теряет события, но никогда не блокирует кэш.
const subscriberBuffer = 16

// Notifier — рассылка URL успешно закэшированных ресурсов.
type Notifier struct {
	mu   sync.Mutex
	subs []chan string
}

// NewNotifier создаёт рассылку событий кэша.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Subscribe возвращает канал событий. Канал получает строку URL
// источника после каждой успешной загрузки в кэш.
func (n *Notifier) Subscribe() <-chan string {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan string, subscriberBuffer)
	n.subs = append(n.subs, ch)
	return ch
}

// Unsubscribe отписывает канал и закрывает его.
func (n *Notifier) Unsubscribe(ch <-chan string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, sub := range n.subs {
		if sub == ch {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			close(sub)
			return
		}
	}
}

// publish рассылает событие всем подписчикам без блокировки:
// переполненный канал пропускает событие.
func (n *Notifier) publish(sourceURL string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, sub := range n.subs {
		select {
		case sub <- sourceURL:
		default:
		}
	}
}
