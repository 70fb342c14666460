package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrValidation используется для ошибок валидации входных данных.
	// Фатальная ошибка: повторная отправка того же запроса не имеет смысла.
	ErrValidation = errors.New("validation failed")

	// ErrTimingInvalid используется, когда заявленное клиентом окно ответа
	// выходит за допустимый предел (duration + tolerance). Ответ учитывается
	// как неправильный с нулевым остатком времени.
	ErrTimingInvalid = errors.New("answer timing outside allowed window")

	// ErrRateLimitExceeded используется, когда лимитер отклонил начисление очков.
	// Не ретраится.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrTransientNetwork используется для сетевых сбоев (таймаут, обрыв соединения,
	// плохой статус), которые ретраятся с ограниченным числом попыток.
	ErrTransientNetwork = errors.New("transient network failure")

	// ErrSessionCreationFailed возвращается после исчерпания всех попыток
	// создания сессии. Оборачивает последнюю причину.
	ErrSessionCreationFailed = errors.New("session creation failed")

	// ErrSessionBusy возвращается, когда создание сессии уже выполняется
	// этим же экземпляром клиента.
	ErrSessionBusy = errors.New("session creation already in progress")

	// ErrDuplicateSubmission используется при повторной отправке ответа на тот же
	// вопрос. Не ошибка для игрока: возвращается первый записанный результат.
	ErrDuplicateSubmission = errors.New("answer already submitted for this question")
)
