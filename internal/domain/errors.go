package domain

import "errors"

// ErrNotFound возвращается хранилищем, когда запись отсутствует.
var ErrNotFound = errors.New("запись не найдена")

// ErrCategoryInUse возвращается при удалении рубрики, на которую ссылаются статьи.
var ErrCategoryInUse = errors.New("рубрика используется статьями")

// ErrDuplicate возвращается при нарушении уникальности.
var ErrDuplicate = errors.New("запись уже существует")
