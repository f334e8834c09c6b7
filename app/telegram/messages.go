package telegram

import (
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// user-facing texts, the audience is Russian-speaking billing admins
const (
	MessageWelcome = `Добро пожаловать!

Этот бот предоставляет информацию о вашем биллинговом аккаунте.

Для начала работы введите ваш логин в системе:`

	MessageLoginNotFound = `Логин не найден.

Проверьте правильность ввода или обратитесь к администратору.`

	MessageNotAdmin = `Доступ к боту разрешён только администраторам аккаунтов.

Обратитесь к администратору для получения доступа.`

	MessageEmailRequest = "Теперь введите ваш email:"

	MessageEmailInvalid = `Неверный формат email.

Попробуйте ещё раз:`

	MessagePasswordRequest = `Введите пароль от системы.

ВНИМАНИЕ: пароль будет автоматически удалён сразу после проверки для вашей безопасности.`

	MessageAuthSuccess = `Аутентификация прошла успешно!

Теперь вы можете использовать все функции бота.`

	MessageAuthFailed = `Неверный логин или пароль.

Попробуйте снова: /start`

	MessageNotRegistered = `Вы не зарегистрированы.

Используйте /start для регистрации.`

	MessageAuthExpired = `Срок действия токена истёк.

Пройдите аутентификацию заново: /start`

	MessageAdminRevoked = `Ваши права администратора были отозваны.

Обратитесь к администратору аккаунта.`

	MessageBalanceError = `Не удалось получить информацию о балансе.

Попробуйте позже.`

	MessageAlreadyRegistered = "Вы уже зарегистрированы!"

	MessageSaveError = `Произошла ошибка при сохранении данных.

Попробуйте позже.`

	MessageNoNotifications = "У вас нет активных уведомлений."

	MessageNotificationSet = `Уведомление установлено!

Порог: %s руб
Время проверки: %s

Вы получите сообщение, когда баланс опустится ниже указанного порога.`

	MessageNotificationDeleted = "Уведомление ID %d удалено."

	MessageThresholdRequest = `Введите сумму баланса (в рублях), при достижении которой вы хотите получить уведомление:

Например: 5000`

	MessageThresholdInvalid = `Неверный формат суммы.

Введите положительное число (например: 5000):`

	MessageTimeRequest = `Выберите время для проверки баланса:

Уведомление будет отправлено в указанное время, если баланс ниже порога.`

	MessageCustomTimeRequest = `Введите время в формате ЧЧ:ММ

Например: 09:30 или 18:00`

	MessageTimeInvalid = `Неверный формат времени.

Введите время в формате ЧЧ:ММ (например: 09:30):`

	MessageNotificationConfirm = `Подтвердите создание уведомления:

Порог баланса: %s руб
Время проверки: %s

Уведомление сработает, если баланс окажется ниже порога.`

	MessageChoosePeriod = `📅 Выберите период отчёта:

Используйте < > для смены года.
Нажмите на месяц — отчёт за месяц.
Нажмите на год — отчёт за весь год.`

	MessageChooseFormat = "Выберите формат отчёта:"

	MessageStatGenerating = "Формирую отчёт, подождите..."

	MessageStatNoData = "Нет данных за выбранный период: %s."

	MessageStatError = `Не удалось сформировать отчёт.

Попробуйте позже.`

	MessageStatCancelled = "Формирование отчёта отменено."

	MessageLogoutConfirm = `Вы уверены, что хотите выйти?

Все ваши уведомления будут удалены.`

	MessageLogoutSuccess = `Вы вышли из системы.

Удалено уведомлений: %d

Для повторной регистрации используйте /start.`

	MessageLogoutNotLoggedIn = "Вы не авторизованы."

	MessageLogoutCancelled = "Выход отменён."

	MessageHelp = `Доступные команды:

/start - Регистрация и аутентификация
/logout - Выход и удаление уведомлений
/help - Показать эту справку

Текущая информация - Информация о вашем аккаунте
Уведомления - Настройка уведомлений о балансе
Статистика - Акт сверки расчётов за период`
)

// main menu reply keyboard buttons
const (
	ButtonShowBalance   = "Текущая информация"
	ButtonNotifications = "Уведомления"
	ButtonStatistics    = "Статистика"
	ButtonHelp          = "Помощь"
)

var timeOptions = []string{"10:00", "12:00", "15:00"}

func mainMenuKeyboard() *telego.ReplyKeyboardMarkup {
	return tu.Keyboard(
		tu.KeyboardRow(tu.KeyboardButton(ButtonShowBalance)),
		tu.KeyboardRow(tu.KeyboardButton(ButtonNotifications), tu.KeyboardButton(ButtonStatistics)),
		tu.KeyboardRow(tu.KeyboardButton(ButtonHelp)),
	).WithResizeKeyboard()
}

func notificationsMenuKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("+ Установить новое").WithCallbackData("notif_new")),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("Мои уведомления").WithCallbackData("notif_list")),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("Удалить").WithCallbackData("notif_delete")),
	)
}

func timeSelectionKeyboard() *telego.InlineKeyboardMarkup {
	row := make([]telego.InlineKeyboardButton, 0, len(timeOptions))
	for _, option := range timeOptions {
		row = append(row, tu.InlineKeyboardButton(option).WithCallbackData("notif_time_"+option))
	}
	return tu.InlineKeyboard(
		row,
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("Свой вариант").WithCallbackData("notif_custom_time"),
			tu.InlineKeyboardButton("Отмена").WithCallbackData("notif_cancel"),
		),
	)
}

func confirmNotificationKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("Подтвердить").WithCallbackData("notif_confirm")),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("Отмена").WithCallbackData("notif_cancel")),
	)
}

func logoutConfirmKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("Подтвердить").WithCallbackData("logout_confirm"),
			tu.InlineKeyboardButton("Отмена").WithCallbackData("logout_cancel"),
		),
	)
}

func formatChoiceKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("Excel").WithCallbackData("stat_fmt_excel"),
			tu.InlineKeyboardButton("PDF").WithCallbackData("stat_fmt_pdf"),
		),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("Отмена").WithCallbackData("stat_cancel")),
	)
}
