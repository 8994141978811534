package queue

import (
	"github.com/redis/go-redis/v9"

	"newsportal/internal/domain"
)

// New выбирает транспорт очереди уведомлений: RabbitMQ, если задан amqpURL,
// иначе список в Redis. Возвращает очередь и функцию закрытия.
func New(amqpURL string, redisClient *redis.Client, key string) (domain.NotificationQueue, func() error, error) {
	if amqpURL != "" {
		q, err := NewRabbitNotificationQueue(amqpURL, key)
		if err != nil {
			return nil, nil, err
		}
		return q, q.Close, nil
	}
	return NewRedisNotificationQueue(redisClient, key), func() error { return nil }, nil
}
