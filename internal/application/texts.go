package application

import (
	"fmt"
	"html"
	"strconv"

	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
)

// User-facing texts. All of them are HTML.

const (
	textUserApproved = "✅ <b>Ваш аккаунт верифицирован!</b>\n\n" +
		"Теперь вы можете пользоваться ботом.\n" +
		"Нажмите /start для начала работы."
	textUserRejected = "❌ <b>Ваша заявка на верификацию отклонена.</b>\n\n" +
		"Если вы считаете, что это произошло по ошибке — обратитесь к администратору."

	textBootstrapPending = "⏳ <b>Ваш аккаунт находится на стадии верификации.</b>\n\n" +
		"Вам будет отправлено уведомление, как только администратор рассмотрит вашу заявку."
	textBootstrapRejected = "❌ <b>Ваша заявка была отклонена.</b>\n\n" +
		"Если вы считаете, что это ошибка — обратитесь к администратору."
	textBootstrapCreated = textBootstrapPending + "\n\nПожалуйста, ожидайте."

	textDenyPending      = "⏳ <b>Ваш аккаунт ещё не верифицирован.</b>\nОжидайте уведомления от бота."
	textDenyRejected     = "❌ <b>Ваша заявка была отклонена.</b>\nОбратитесь к администратору."
	textDenyUnregistered = "⚠️ Для доступа необходима верификация.\nОтправьте /start чтобы подать заявку."
	textDenyUnavailable  = "⚠️ Сервис временно недоступен. Попробуйте позже."

	alertDenyPending      = "⏳ Ваш аккаунт ещё не верифицирован."
	alertDenyRejected     = "❌ Ваша заявка отклонена."
	alertDenyUnregistered = "⚠️ Отправьте /start для начала работы."
	alertDenyUnavailable  = "⚠️ Сервис временно недоступен."

	textThrottled  = "⏳ <b>Слишком много сообщений.</b>\nПоследние сообщения не обработаны, подождите минуту и отправьте их снова."
	alertThrottled = "⏳ Слишком много запросов, подождите."

	alertAlreadyHandled = "⚠️ Эта заявка уже обработана!"
	alertForbidden      = "⛔ Недостаточно прав."

	textSubmitting        = "📤 <i>Отправляю заявку...</i>"
	textSubmitFailed      = "❌ <b>Произошла ошибка при отправке.</b>\n\nПроверьте соединение и попробуйте снова."
	textSubmitFailedShort = "❌ Произошла ошибка при отправке."

	alertConfirmInProgress = "⏳ Заявка в работе..."
	textConfirmUnreachable = "❌ Ошибка связи с сервером. Попробуйте позже."
	textConfirmDefaultErr  = "Ошибка сервера"

	noUsername = "<i>нет username</i>"
)

func adminWelcomeText(a entity.Actor) string {
	return fmt.Sprintf("👑 <b>Добро пожаловать, Администратор!</b>\n"+
		"━━━━━━━━━━━━━━━━━━━━━━\n"+
		"👤 <b>%s</b>\n"+
		"🆔 ID: <code>%d</code>\n\n"+
		"🔓 У вас <b>полный доступ</b> ко всем функциям бота.\n"+
		"Заявки на верификацию будут приходить вам в этот чат.",
		html.EscapeString(a.FullName), a.ID)
}

func approvedWelcomeText(a entity.Actor) string {
	return fmt.Sprintf("👋 Добро пожаловать, <b>%s</b>!\nВы верифицированы и можете пользоваться ботом.",
		html.EscapeString(a.FullName))
}

// verificationRequestText renders the reviewer notice from the stored record.
func verificationRequestText(u entity.User) string {
	username := noUsername
	if u.Username != "" {
		username = "@" + html.EscapeString(u.Username)
	}
	return fmt.Sprintf("🔔 <b>Новая заявка на верификацию</b>\n"+
		"━━━━━━━━━━━━━━━━━━━━━━\n"+
		"👤 Имя: <b>%s</b>\n"+
		"🆔 ID: <code>%d</code>\n"+
		"📎 Username: %s",
		html.EscapeString(u.FullName), u.ID, username)
}

func verificationKeyboard(userID int64) Keyboard {
	id := strconv.FormatInt(userID, 10)
	return Keyboard{{
		{Text: "✅ Подтвердить", Data: verifyPrefix + string(ActionApprove) + ":" + id},
		{Text: "❌ Отклонить", Data: verifyPrefix + string(ActionReject) + ":" + id},
	}}
}

// plainStatusLabel is the decision word as it appears in a rendered notice.
func plainStatusLabel(s entity.Status) string {
	if s == entity.StatusApproved {
		return "Подтверждён"
	}
	return "Отклонён"
}

func statusLabel(s entity.Status) string {
	if s == entity.StatusApproved {
		return "✅ " + plainStatusLabel(s)
	}
	return "❌ " + plainStatusLabel(s)
}

// pressedNoticeText is the text of the pressed notice as the reviewer saw it. The request is
// rendered from the record only when the transport did not supply the text.
func pressedNoticeText(ev *entity.Event, u entity.User) string {
	if ev.NoticeText != "" {
		return html.EscapeString(ev.NoticeText)
	}
	return verificationRequestText(u)
}

func resolutionLine(s entity.Status, reviewer entity.Actor) string {
	return fmt.Sprintf("\n\n%s администратором %s", boldLabel(s), html.EscapeString(reviewer.Handle()))
}

func alreadyHandledLine(s entity.Status) string {
	return "\n\nℹ️ <b>Уже обработано:</b> " + statusLabel(s)
}

func boldLabel(s entity.Status) string {
	if s == entity.StatusApproved {
		return "✅ <b>" + plainStatusLabel(s) + "</b>"
	}
	return "❌ <b>" + plainStatusLabel(s) + "</b>"
}

func replaceCapturedText(orderID int64) string {
	return fmt.Sprintf("🔄 <b>Вы указали ID заявки #%d для обновления.</b>\n"+
		"Теперь отправьте новые фотографии и описание (одним сообщением или альбомом). "+
		"Данные в системе будут обновлены.", orderID)
}

func editModeText(orderID int64) string {
	return fmt.Sprintf("⚠️ <b>Включен режим редактирования заявки #%d.</b>\n\n"+
		"‼️ Пожалуйста, пересоздайте заявку с учетом дополнительной информации.", orderID)
}

func orderAcceptedText(orderID int64, replaceID *int64, description string) string {
	verb := "успешно создана"
	if replaceID != nil {
		verb = fmt.Sprintf("обновлена (номер #%d сохранен)", *replaceID)
	}
	desc := "<i>не указано</i>"
	if description != "" {
		desc = html.EscapeString(description)
	}
	return fmt.Sprintf("✅ <b>Заявка #%d %s!</b>\n📋 Описание: %s\n⏳ Заявка в работе.", orderID, verb, desc)
}

func serverErrorText(code int) string {
	return fmt.Sprintf("❌ <b>Ошибка сервера (%d).</b>\n\nПожалуйста, попробуйте позже.", code)
}

func orderDoneText(orderID int64) string {
	return fmt.Sprintf("✅ <b>Заявка #%d выполнена успешно!</b>", orderID)
}

func confirmErrorText(detail string) string {
	return "❌ <b>Ошибка:</b> " + html.EscapeString(detail)
}
